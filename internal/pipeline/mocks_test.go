package pipeline

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/events"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// capturingEmitter records emitted job requests instead of dispatching them.
type capturingEmitter struct {
	mu     sync.Mutex
	events []*events.JobRequestEvent
	err    error
}

func (e *capturingEmitter) EmitEvent(ctx context.Context, event *events.JobRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *capturingEmitter) emitted() []*events.JobRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.JobRequestEvent(nil), e.events...)
}

// memGenerationStore is an in-memory store.GenerationStore with the same
// terminal-state semantics as the SQL implementation.
type memGenerationStore struct {
	mu   sync.Mutex
	gens map[uuid.UUID]*domain.Generation
}

func newMemGenerationStore() *memGenerationStore {
	return &memGenerationStore{gens: make(map[uuid.UUID]*domain.Generation)}
}

func (s *memGenerationStore) Create(ctx context.Context, gen *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.gens[gen.CorrelationID]; exists {
		return nil
	}
	copied := *gen
	s.gens[gen.CorrelationID] = &copied
	return nil
}

func (s *memGenerationStore) GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[correlationID]
	if !ok {
		return nil, store.ErrGenerationNotFound
	}
	copied := *gen
	return &copied, nil
}

func (s *memGenerationStore) ListByEmail(ctx context.Context, email string, limit int) ([]*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Generation
	for _, gen := range s.gens {
		if gen.Email == email {
			copied := *gen
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memGenerationStore) UpdateStatus(ctx context.Context, correlationID uuid.UUID, status domain.GenerationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[correlationID]
	if !ok || gen.IsTerminal() {
		return nil
	}
	gen.Status = status
	gen.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memGenerationStore) SetPromptID(ctx context.Context, correlationID, promptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[correlationID]
	if !ok {
		return store.ErrGenerationNotFound
	}
	gen.PromptID = uuid.NullUUID{UUID: promptID, Valid: true}
	return nil
}

func (s *memGenerationStore) Complete(ctx context.Context, correlationID uuid.UUID, artifactURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[correlationID]
	if !ok || gen.IsTerminal() {
		return nil
	}
	gen.Status = domain.GenerationStatusCompleted
	gen.ArtifactURL = artifactURL
	return nil
}

func (s *memGenerationStore) MarkFailed(ctx context.Context, correlationID uuid.UUID, failure []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[correlationID]
	if !ok || gen.IsTerminal() {
		return nil
	}
	gen.Status = domain.GenerationStatusFailed
	gen.FailureJSON = failure
	return nil
}

func (s *memGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore { return s }

// memTransactor satisfies store.Transactor without a database: the
// function runs directly and the mem stores ignore the nil transaction.
type memTransactor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (t *memTransactor) Transact(ctx context.Context, fn store.TxFn) error {
	t.mu.Lock()
	t.calls++
	err := t.err
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx, nil)
}

func (t *memTransactor) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// memPromptStore is an in-memory store.PromptStore. First write per
// fingerprint wins, matching the ON CONFLICT DO NOTHING semantics.
type memPromptStore struct {
	mu            sync.Mutex
	byFingerprint map[string]*domain.Prompt
	byID          map[uuid.UUID]*domain.Prompt
}

func newMemPromptStore() *memPromptStore {
	return &memPromptStore{
		byFingerprint: make(map[string]*domain.Prompt),
		byID:          make(map[uuid.UUID]*domain.Prompt),
	}
}

func (s *memPromptStore) Create(ctx context.Context, prompt *domain.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byFingerprint[prompt.Fingerprint]; exists {
		return nil
	}
	copied := *prompt
	s.byFingerprint[prompt.Fingerprint] = &copied
	s.byID[prompt.ID] = &copied
	return nil
}

func (s *memPromptStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompt, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, store.ErrPromptNotFound
	}
	copied := *prompt
	return &copied, nil
}

func (s *memPromptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompt, ok := s.byID[id]
	if !ok {
		return nil, store.ErrPromptNotFound
	}
	copied := *prompt
	return &copied, nil
}

// memStateStore is an in-memory store.StateStore with TTL semantics.
type memStateStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]stateEntry
}

type stateEntry struct {
	payload   []byte
	expiresAt time.Time
}

func newMemStateStore() *memStateStore {
	return &memStateStore{entries: make(map[uuid.UUID]stateEntry)}
}

func (s *memStateStore) Put(ctx context.Context, correlationID uuid.UUID, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[correlationID] = stateEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *memStateStore) Get(ctx context.Context, correlationID uuid.UUID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[correlationID]
	if !ok || time.Now().UTC().After(entry.expiresAt) {
		return nil, store.ErrStateNotFound
	}
	return append([]byte(nil), entry.payload...), nil
}

func (s *memStateStore) Delete(ctx context.Context, correlationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, correlationID)
	return nil
}

func (s *memStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	now := time.Now().UTC()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			purged++
		}
	}
	return purged, nil
}

// mockPromptProvider is a configurable generation.PromptGenerator.
type mockPromptProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (p *mockPromptProvider) GeneratePrompt(ctx context.Context, input generation.ProductInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func (p *mockPromptProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// mockVideoProvider is a configurable generation.VideoGenerator.
type mockVideoProvider struct {
	mu    sync.Mutex
	url   string
	err   error
	calls int
}

func (p *mockVideoProvider) GenerateVideo(ctx context.Context, imageURL, promptText string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}

func (p *mockVideoProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
