package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const snippetLimit = 160

// DecodeModelJSON unmarshals model output into target. Models wrap JSON in
// markdown fences or prose often enough that a strict decode is only the
// first attempt; on failure the payload is reduced to its outermost JSON
// value and decoded once more. Errors carry a flattened snippet of the
// offending payload for the audit log.
func DecodeModelJSON(content string, target any) error {
	payload := strings.TrimSpace(content)
	if payload == "" {
		return errors.New("empty payload")
	}

	strictErr := json.Unmarshal([]byte(payload), target)
	if strictErr == nil {
		return nil
	}

	reduced := extractJSONValue(payload)
	if reduced == "" || reduced == payload {
		return fmt.Errorf("%w (payload snippet: %s)", strictErr, snippet(payload))
	}
	if err := json.Unmarshal([]byte(reduced), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, snippet(reduced))
	}
	return nil
}

// extractJSONValue drops a surrounding markdown fence and cuts the payload
// down to the outermost {...} or [...] span. Input without a recognizable
// JSON value comes back unchanged.
func extractJSONValue(payload string) string {
	payload = strings.TrimSpace(trimFence(payload))
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(payload, pair[0])
		if start < 0 {
			continue
		}
		if end := strings.LastIndexByte(payload, pair[1]); end > start {
			return strings.TrimSpace(payload[start : end+1])
		}
	}
	return payload
}

// trimFence removes a ``` or ```json fence wrapping the payload.
func trimFence(payload string) string {
	if !strings.HasPrefix(payload, "```") {
		return payload
	}
	body := payload[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if lang := strings.TrimSpace(body[:nl]); lang == "" || strings.EqualFold(lang, "json") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// snippet flattens a payload onto one line and truncates it for error text.
func snippet(payload string) string {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return "<empty>"
	}
	flat := strings.Join(fields, " ")
	if runes := []rune(flat); len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return flat
}
