package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Kind tells which branch of a Completion is populated.
type Kind string

const (
	KindStructured Kind = "structured"
	KindText       Kind = "text"
)

// Completion is the coerced backend output: either a JSON object or plain text.
// Raw always holds the text as received.
type Completion struct {
	Kind       Kind
	Structured map[string]any
	Text       string
	Raw        string
}

// Coerce strips enclosing code fences from raw and tries to parse the rest as a
// JSON object. When that fails the trimmed text is kept as a text completion.
func Coerce(raw string) *Completion {
	cleaned := StripFences(raw)

	var data map[string]any
	if cleaned != "" && json.Unmarshal([]byte(cleaned), &data) == nil && data != nil {
		return &Completion{Kind: KindStructured, Structured: data, Raw: raw}
	}

	return &Completion{Kind: KindText, Text: strings.TrimSpace(raw), Raw: raw}
}

// Require returns the structured payload or ErrMalformedOutput for text results.
func (c *Completion) Require() (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no completion", ErrMalformedOutput)
	}
	if c.Kind != KindStructured || c.Structured == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedOutput)
	}
	return c.Structured, nil
}

// Decode maps the structured payload onto out, a pointer to a struct tagged
// with mapstructure names. Loose scalar types are converted where possible.
func (c *Completion) Decode(out any) error {
	data, err := c.Require()
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// Content returns the best textual rendering of the completion.
func (c *Completion) Content() string {
	if c == nil {
		return ""
	}
	if c.Kind == KindText {
		return c.Text
	}
	return strings.TrimSpace(c.Raw)
}

// StripFences removes a leading ``` or ```json marker and the trailing fence.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.IndexByte(raw, '\n'); nl != -1 && !strings.ContainsAny(raw[:nl], "{[") {
			raw = raw[nl+1:]
		} else {
			raw = strings.TrimPrefix(raw, "json")
		}
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
