package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	t.Parallel()

	t.Run("decodes a flat object", func(t *testing.T) {
		t.Parallel()

		p, err := ParsePayload([]byte(`{"email":"a@b.com","product_title":"Lamp"}`))
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", p.Get(KeyEmail))
		assert.Equal(t, "Lamp", p.Get(KeyProductTitle))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		_, err := ParsePayload([]byte(`{"email":`))
		assert.Error(t, err)
	})

	t.Run("null payload becomes empty", func(t *testing.T) {
		t.Parallel()

		p, err := ParsePayload([]byte(`null`))
		require.NoError(t, err)
		assert.Empty(t, p.Get(KeyEmail))
	})
}

func TestPayloadRequire(t *testing.T) {
	t.Parallel()

	p := Payload{KeyEmail: "a@b.com", KeyProductTitle: "Lamp"}

	assert.NoError(t, p.Require(KeyEmail, KeyProductTitle))

	err := p.Require(KeyEmail, KeyInputImageURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), KeyInputImageURL)
}

func TestPayloadCorrelationID(t *testing.T) {
	t.Parallel()

	t.Run("parses a valid ID", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		p := Payload{KeyCorrelationID: id.String()}
		got, err := p.CorrelationID()
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("missing ID fails", func(t *testing.T) {
		t.Parallel()

		_, err := Payload{}.CorrelationID()
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("garbage ID fails", func(t *testing.T) {
		t.Parallel()

		_, err := Payload{KeyCorrelationID: "not-a-uuid"}.CorrelationID()
		assert.Error(t, err)
	})
}

func TestPayloadMerge(t *testing.T) {
	t.Parallel()

	base := Payload{KeyEmail: "a@b.com", KeyPromptText: "old"}
	overlay := Payload{KeyPromptText: "new", KeyPromptID: "p1"}

	merged := base.Merge(overlay)

	assert.Equal(t, "a@b.com", merged.Get(KeyEmail))
	assert.Equal(t, "new", merged.Get(KeyPromptText))
	assert.Equal(t, "p1", merged.Get(KeyPromptID))

	// Inputs stay untouched.
	assert.Equal(t, "old", base.Get(KeyPromptText))
	assert.Empty(t, overlay.Get(KeyEmail))
}

func TestPayloadForceNew(t *testing.T) {
	t.Parallel()

	assert.True(t, Payload{KeyForceNew: "true"}.ForceNew())
	assert.False(t, Payload{KeyForceNew: "false"}.ForceNew())
	assert.False(t, Payload{}.ForceNew())
}

func TestPayloadJSONRoundTrip(t *testing.T) {
	t.Parallel()

	p := Payload{KeyEmail: "a@b.com", KeyProductTitle: "Lamp"}
	raw, err := p.JSON()
	require.NoError(t, err)

	decoded, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}
