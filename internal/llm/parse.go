package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrMalformedResponse is returned when a model answer holds no decodable
// JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject returns the JSON object embedded in a model answer. A
// ```json fenced block takes precedence; otherwise the text from the first
// "{" to the last "}" is used.
func ExtractJSONObject(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	return text[start : end+1], nil
}

// ParseResponse decodes a model answer into an AnalysisResult. It never
// returns an empty result on failure.
func ParseResponse(text string) (*AnalysisResult, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	res, err := decodeObject([]byte(obj))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// decodeObject decodes the known groups of an analysis object. The object
// itself must be valid JSON; a group with an unexpected shape is left empty
// and noted in the error log.
func decodeObject(b []byte) (*AnalysisResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	res := &AnalysisResult{Raw: json.RawMessage(bytes.Clone(b))}
	groups := []struct {
		key string
		dst any
	}{
		{"metadata", &res.Metadata},
		{"physical_properties", &res.PhysicalProperties},
		{"condition_analysis", &res.ConditionAnalysis},
		{"market_data", &res.MarketData},
		{"additional_info", &res.AdditionalInfo},
		{"validation_sources", &res.ValidationSources},
		{"error_log", &res.ErrorLog},
	}
	for _, g := range groups {
		raw, ok := fields[g.key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, g.dst); err != nil {
			res.AddError(fmt.Sprintf("%s: %v", g.key, err))
		}
	}

	if raw, ok := fields["error"]; ok {
		var msg Text
		_ = json.Unmarshal(raw, &msg)
		res.Error = msg.String()
	}
	if raw, ok := fields["processing_timestamp"]; ok {
		var ts string
		if json.Unmarshal(raw, &ts) == nil {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				res.ProcessingTimestamp = t
			}
		}
	}
	return res, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
