package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// cleanModelText strips markdown code fences that models add despite being told not to
func cleanModelText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseDocumentJSON parses the JSON object returned by a model
func parseDocumentJSON(text string) (Record, error) {
	text = cleanModelText(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrMalformedResponse)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: invalid JSON object in response", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[startIdx : endIdx+1])))
	dec.UseNumber()

	var record Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %w", ErrMalformedResponse, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: empty JSON object", ErrMalformedResponse)
	}

	return record, nil
}
