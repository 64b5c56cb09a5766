// Package provider exposes a uniform contract over interchangeable model
// backends. Callers are provider-agnostic: every transport or auth failure
// is normalized to *Error, and the active backend is selected by
// configuration at construction time.
package provider

import (
	"context"
	"fmt"

	"codemate/internal/conversation"
)

// Client is the three-operation contract every backend implements.
type Client interface {
	// GenerateContent answers a single standalone prompt.
	GenerateContent(ctx context.Context, prompt string) (string, error)
	// GenerateChatContent answers based on a conversation window. A system
	// message, when present, is first.
	GenerateChatContent(ctx context.Context, messages []conversation.Message) (string, error)
	// CheckConnection reports whether the backend is reachable with the
	// configured credentials.
	CheckConnection(ctx context.Context) bool
	// Name returns the provider identifier used in user-facing messages.
	Name() string
}

// Error wraps any transport, auth, or rate-limit failure from a backend.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the provider-specific generic message shown in chat when
// a call fails. Details stay in the logs.
func (e *Error) UserMessage() string {
	return fmt.Sprintf("**Error:** The %s request failed. Check your API key and network connection, then try again.", e.Provider)
}
