package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Payload keys shared across pipeline stages. Stage boundaries carry only
// these primitive fields; no stage ever receives another stage's live
// objects.
const (
	KeyCorrelationID      = "correlation_id"
	KeyEmail              = "email"
	KeyProductTitle       = "product_title"
	KeyProductDescription = "product_description"
	KeyInputImageURL      = "input_image_url"
	KeyForceNew           = "force_new"
	KeyCallbackJob        = "callback_job"
	KeyPromptID           = "prompt_id"
	KeyPromptText         = "prompt_text"
)

// ErrMissingField is returned when a payload lacks a required field.
var ErrMissingField = errors.New("payload missing required field")

// Payload is the serializable argument set passed between pipeline
// stages. It deliberately holds only strings: stage boundaries are data
// boundaries, and everything a successor needs must survive a round trip
// through JSON and the task table.
type Payload map[string]string

// ParsePayload decodes raw JSON into a Payload.
func ParsePayload(raw json.RawMessage) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// JSON serializes the payload.
func (p Payload) JSON() (json.RawMessage, error) {
	return json.Marshal(p)
}

// Get returns the value for key, or "" when absent.
func (p Payload) Get(key string) string {
	return p[key]
}

// Require verifies that every named field is present and non-empty.
func (p Payload) Require(keys ...string) error {
	for _, key := range keys {
		if p[key] == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}
	return nil
}

// CorrelationID parses the payload's correlation ID field.
func (p Payload) CorrelationID() (uuid.UUID, error) {
	raw := p[KeyCorrelationID]
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrMissingField, KeyCorrelationID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid correlation ID %q: %w", raw, err)
	}
	return id, nil
}

// Merge returns a new Payload with other's fields layered over p's. Fields
// in other win on conflict; neither input is modified.
func (p Payload) Merge(other Payload) Payload {
	merged := make(Payload, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// ForceNew reports whether the submission opted out of prompt reuse.
func (p Payload) ForceNew() bool {
	return p[KeyForceNew] == "true"
}
