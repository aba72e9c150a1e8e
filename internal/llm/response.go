package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

// ExtractJSONObject pulls the first well-formed JSON object out of a free
// text model response. Models routinely wrap the payload in prose or
// markdown code fences; both are tolerated.
func ExtractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Prefer fenced blocks when present.
	if strings.Contains(raw, "```") {
		if fenced := extractFenced(raw); fenced != "" {
			raw = fenced
		}
	}

	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}

	// Unbalanced object, likely truncated output; return what we have and
	// let the repair step close it.
	return raw[start:]
}

// extractFenced returns the content of the first ``` block, skipping an
// optional language tag on the opening fence.
func extractFenced(raw string) string {
	lines := strings.Split(raw, "\n")
	var inner []string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}
		if inBlock {
			inner = append(inner, line)
		}
	}
	return strings.TrimSpace(strings.Join(inner, "\n"))
}

// DecodeObject extracts, repairs and unmarshals the first JSON object in a
// model response into target. Malformed output goes through the jsonrepair
// library before being rejected.
func DecodeObject(raw string, target interface{}) error {
	jsonStr := ExtractJSONObject(raw)
	if jsonStr == "" {
		return fmt.Errorf("no JSON object found in response")
	}

	if err := json.Unmarshal([]byte(jsonStr), target); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return fmt.Errorf("failed to repair JSON response: %w", err)
	}
	log.Debug().Int("original_bytes", len(jsonStr)).Int("repaired_bytes", len(repaired)).
		Msg("repaired malformed collaborator JSON")

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("failed to parse repaired JSON response: %w", err)
	}
	return nil
}

// NormalizeLabel trims whitespace, surrounding quotes and a leading
// enumeration marker ("3. Billing or Refund Request" -> "Billing or Refund
// Request") from a classification answer.
func NormalizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = strings.Trim(label, "\"'`")
	label = strings.TrimSpace(label)

	// Strip a leading "<digits>." or "<digits>)" marker.
	i := 0
	for i < len(label) && label[i] >= '0' && label[i] <= '9' {
		i++
	}
	if i > 0 && i < len(label) && (label[i] == '.' || label[i] == ')') {
		label = strings.TrimSpace(label[i+1:])
	}
	return label
}
