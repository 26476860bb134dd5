package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wesleyorama2/stormbench/internal/benchmark/engine"
)

// Document is the JSON result file.
type Document struct {
	*engine.Result

	Tag      string `json:"tag"`
	CPolicy  string `json:"cpolicy"`
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}

// NewDocument wraps result for serialization. An access token in the
// configuration is redacted.
func NewDocument(result *engine.Result) *Document {
	r := *result
	if r.Config != nil && r.Config.AccessToken != "" {
		cfg := *r.Config
		cfg.AccessToken = "REDACTED"
		r.Config = &cfg
	}

	doc := &Document{
		Result:   &r,
		Tag:      result.Config.Tag(),
		CPolicy:  result.Config.PolicyLabel(),
		Complete: result.Error == nil,
	}
	if result.Error != nil {
		doc.Error = result.Error.Error()
	}
	return doc
}

// GenerateJSON renders the result document.
func GenerateJSON(result *engine.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}
	return json.MarshalIndent(NewDocument(result), "", "  ")
}

// WriteJSON writes the result document to path.
func WriteJSON(path string, result *engine.Result) error {
	data, err := GenerateJSON(result)
	if err != nil {
		return fmt.Errorf("failed to generate JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
