// Package advisory turns LLM completions into validated, typed advice.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/llm"
)

var (
	// ErrUnavailable covers every failed call; callers show their fallback.
	ErrUnavailable  = errors.New("advisory unavailable")
	ErrInvalidReply = errors.New("reply does not match schema")
)

// Prompt is one advisory request.
type Prompt struct {
	System    string
	Text      string
	ImageURLs []string
}

type Adapter struct {
	client  llm.Client
	hotline string
	logger  zerolog.Logger
}

func NewAdapter(client llm.Client, hotline string, logger zerolog.Logger) *Adapter {
	return &Adapter{
		client:  client,
		hotline: hotline,
		logger:  logger.With().Str("component", "advisory").Logger(),
	}
}

func (a *Adapter) Hotline() string { return a.hotline }

// Fallback is the message shown in place of a failed chat reply.
func (a *Adapter) Fallback() string {
	return fmt.Sprintf("I apologize, but I'm having trouble processing your request right now. "+
		"Please try again or contact our helpline at %s for immediate assistance.", a.hotline)
}

// Unavailable is the message returned when a stored advisory cannot be produced.
func (a *Adapter) Unavailable() string {
	return fmt.Sprintf("Our AI assistant is unavailable right now. Please try again later or call %s.", a.hotline)
}

// Invoke asks for a reply of variant T and returns it only if it parses and
// validates. Every failure is logged and returned wrapping ErrUnavailable.
func Invoke[T any, P interface {
	*T
	Variant
}](ctx context.Context, a *Adapter, p Prompt) (*T, error) {
	var out T
	v := P(&out)

	req := llm.Request{
		System:    p.System,
		Prompt:    p.Text,
		Schema:    v.Schema(),
		ImageURLs: p.ImageURLs,
	}
	raw, err := a.client.Complete(ctx, req)
	if err != nil {
		a.logger.Warn().Err(err).Str("variant", v.Kind()).Msg("completion failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := decode(raw, v); err != nil {
		a.logger.Warn().Err(err).Str("variant", v.Kind()).Msg("rejected reply")
		if f, ok := a.client.(llm.Forgetter); ok {
			f.Forget(req)
		}
		return nil, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrInvalidReply, err)
	}
	return &out, nil
}

func decode(raw json.RawMessage, v Variant) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("reply is not an object: %w", err)
	}
	var schema struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(v.Schema(), &schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	for _, k := range schema.Required {
		val, ok := fields[k]
		if !ok || bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			return fmt.Errorf("missing required field %q", k)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return v.Validate()
}
