// Package oracle wraps the language model used for page classification,
// report extraction, image OCR and transaction categorization.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Oracle turns prompts into text.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt, imagePath string) (string, error)
}

// ErrMalformedResponse is returned when an oracle response cannot be decoded
// as the expected JSON.
var ErrMalformedResponse = errors.New("oracle: malformed response")

// OCRPrompt asks the oracle for a plain transcription of an attached image.
const OCRPrompt = `Extract ALL text from this image, preserving layout as much as possible.
This is a scanned invoice.

Include:
- All printed text
- All handwritten text (do your best)
- Numbers and amounts
- Any headers or labels

Return the extracted text, nothing else.`

// StripFences removes a surrounding Markdown code fence from s.
func StripFences(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(s)
}

// DecodeJSON strips fences from s and unmarshals it into out.
func DecodeJSON(s string, out any) error {
	body := StripFences(s)
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return eris.Wrapf(ErrMalformedResponse, "decode: %v", err)
	}
	return nil
}

// ExtractionPrompt builds the prompt used to turn report text into JSON.
func ExtractionPrompt(text, schema, example string) string {
	var b strings.Builder
	b.WriteString("Parse the following financial report text into structured JSON.\n\n")
	b.WriteString(schema)
	b.WriteString("\n\n")
	if example != "" {
		fmt.Fprintf(&b, "Example output format:\n%s\n\n", example)
	}
	b.WriteString("Return ONLY valid JSON, no explanations or markdown.\n\nTEXT TO PARSE:\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}

// ParseTextToJSON asks o to structure text and returns the decoded JSON
// document.
func ParseTextToJSON(ctx context.Context, o Oracle, text, schema, example string) (json.RawMessage, error) {
	resp, err := o.Complete(ctx, ExtractionPrompt(text, schema, example))
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := DecodeJSON(resp, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
