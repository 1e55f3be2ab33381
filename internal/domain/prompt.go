package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Common validation errors for Prompt
var (
	ErrEmptyPromptText  = errors.New("prompt text cannot be empty")
	ErrEmptyPromptTitle = errors.New("prompt product title cannot be empty")
)

// Prompt is a generated video prompt stored for reuse. Prompts are indexed
// by a fingerprint of the normalized product title and description so that
// repeat submissions of the same product skip the external provider call.
type Prompt struct {
	ID                 uuid.UUID `json:"id"`
	Fingerprint        string    `json:"fingerprint"`
	ProductTitle       string    `json:"product_title"`
	ProductDescription string    `json:"product_description"`
	PromptText         string    `json:"prompt_text"`
	ModelUsed          string    `json:"model_used"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewPrompt creates a Prompt for the given product, computing its reuse
// fingerprint from the title and description. Returns an error if
// validation fails.
func NewPrompt(productTitle, productDescription, promptText, modelUsed string) (*Prompt, error) {
	if productTitle == "" {
		return nil, ErrEmptyPromptTitle
	}
	if promptText == "" {
		return nil, ErrEmptyPromptText
	}

	return &Prompt{
		ID:                 uuid.New(),
		Fingerprint:        PromptFingerprint(productTitle, productDescription),
		ProductTitle:       productTitle,
		ProductDescription: productDescription,
		PromptText:         promptText,
		ModelUsed:          modelUsed,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// PromptFingerprint derives the reuse-index key for a product. Title and
// description are lowercased and whitespace-collapsed before hashing so
// trivially different submissions land on the same prompt.
func PromptFingerprint(productTitle, productDescription string) string {
	normalized := normalizeText(productTitle) + "\n" + normalizeText(productDescription)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// normalizeText lowercases s and collapses runs of whitespace to single
// spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteRune(' ')
			inSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
