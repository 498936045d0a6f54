package ai

import (
	"context"
	"strings"
)

// Mode selects the output format requested from the backend.
type Mode string

const (
	// ModeJSON asks the backend for a single JSON object.
	ModeJSON Mode = "json"
	// ModeText asks for plain text.
	ModeText Mode = "text"
)

// Credential authorizes generative calls made on behalf of one tenant.
type Credential struct {
	TenantID string
	APIKey   string
	Model    string
}

// Configured reports whether the credential carries a usable API key.
func (c Credential) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Attachment is a binary document sent alongside the prompt.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is a single completion call.
type Request struct {
	Credential  Credential
	Prompt      string
	Attachments []Attachment
	Mode        Mode
}

// Completer is a stateless completion capability. Every call is independent.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (*Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}
