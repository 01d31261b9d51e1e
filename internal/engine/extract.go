package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractPatch recovers a budget patch from an agent reply that embedded
// JSON in prose or a code fence instead of the structured updates field.
// It tries a fenced block first, then the first balanced {...} region.
// Returns false when nothing decodes to a non-empty patch; the caller then
// treats the whole reply as plain text with no updates.
func ExtractPatch(reply string) (*domain.BudgetPatch, bool) {
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		if p, ok := decodePatch(m[1]); ok {
			return p, true
		}
	}
	if raw, ok := firstBalancedObject(reply); ok {
		if p, ok := decodePatch(raw); ok {
			return p, true
		}
	}
	return nil, false
}

func decodePatch(raw string) (*domain.BudgetPatch, bool) {
	var patch domain.BudgetPatch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return nil, false
	}
	if patch.IsEmpty() {
		return nil, false
	}
	return &patch, true
}

// firstBalancedObject scans for the first top-level {...} pair, tracking
// braces inside strings so prose like "{cool}" plus a later object still
// resolves.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
