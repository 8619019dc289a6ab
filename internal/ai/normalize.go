package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"smartats/internal/errors"
	"smartats/internal/types"
)

// MatchUnavailable is the sentinel used when the model produced a usable
// response but no parseable match percentage. A useful summary with an
// unparsable score is still worth returning.
const MatchUnavailable = "N/A"

// Accepted key aliases per canonical field, after folding (lowercase with
// spaces, underscores and hyphens removed). Models rename these fields freely
// between runs.
var (
	matchAliases    = []string{"jdmatch", "match", "matchpercentage", "score", "matchscore"}
	keywordsAliases = []string{"missingkeywords", "keywords", "missingskills", "gaps"}
	summaryAliases  = []string{"profilesummary", "summary", "profile", "analysis"}
)

// Normalize parses raw model output into the canonical result shape. It
// tolerates code fences, surrounding prose, field-name drift and type drift,
// extracting whatever signal it can. It fails with UnparsableResponse only
// when none of the three fields carries a meaningful value.
//
// Pure and idempotent: same input, same output, no hidden state.
func Normalize(raw string) (types.AnalysisResult, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	fields, ok := parseObject(text)
	if !ok {
		return types.AnalysisResult{}, errors.NewAIError(errors.ErrCodeUnparsableResponse,
			"Model response contains no parseable object", nil)
	}

	result := types.AnalysisResult{
		JDMatch:         coerceMatch(lookupAlias(fields, matchAliases)),
		MissingKeywords: coerceKeywords(lookupAlias(fields, keywordsAliases)),
		ProfileSummary:  coerceSummary(lookupAlias(fields, summaryAliases)),
	}

	if !meaningful(result) {
		return types.AnalysisResult{}, errors.NewAIError(errors.ErrCodeUnparsableResponse,
			"No usable field recovered from model response", nil)
	}

	return result, nil
}

// stripCodeFence removes a surrounding triple-backtick fence, with or without
// a language tag, keeping only the interior.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := text[3:]
	// Drop the language tag line ("json", "JSON", ...) if present
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		return text
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// parseObject extracts a key-value mapping from the text. Strategy chain:
// first-{ to last-} substring, then the whole text, each tried strictly and
// then with single quotes rewritten to double quotes (a common model habit).
func parseObject(text string) (map[string]any, bool) {
	candidates := []string{}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	candidates = append(candidates, text)

	for _, candidate := range candidates {
		if fields, ok := tryUnmarshal(candidate); ok {
			return fields, true
		}
		if fields, ok := tryUnmarshal(strings.ReplaceAll(candidate, "'", `"`)); ok {
			return fields, true
		}
	}

	return nil, false
}

func tryUnmarshal(candidate string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// foldKey normalizes a raw key for alias comparison: lowercase with spaces,
// underscores and hyphens removed, so "JD Match", "jd_match" and "JD-MATCH"
// all collapse to "jdmatch".
func foldKey(key string) string {
	folded := strings.ToLower(key)
	folded = strings.ReplaceAll(folded, " ", "")
	folded = strings.ReplaceAll(folded, "_", "")
	folded = strings.ReplaceAll(folded, "-", "")
	return folded
}

// lookupAlias returns the value of the first alias present in the mapping.
// Earlier aliases win so the canonical name beats looser ones.
func lookupAlias(fields map[string]any, aliases []string) any {
	folded := make(map[string]any, len(fields))
	for key, value := range fields {
		if _, exists := folded[foldKey(key)]; !exists {
			folded[foldKey(key)] = value
		}
	}
	for _, alias := range aliases {
		if value, ok := folded[alias]; ok {
			return value
		}
	}
	return nil
}

// coerceMatch coerces the match value to the canonical "NN%" string form.
// Missing or non-numeric values yield the sentinel instead of failing the
// whole normalization.
func coerceMatch(value any) string {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return MatchUnavailable
		}
		if strings.HasSuffix(s, "%") {
			return s
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s + "%"
		}
		return MatchUnavailable
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64) + "%"
	case int:
		return strconv.Itoa(v) + "%"
	default:
		return MatchUnavailable
	}
}

// coerceKeywords coerces the keywords value to an ordered string slice.
// Accepts a sequence or a single comma-delimited string; missing or empty
// yields an empty slice, not an error.
func coerceKeywords(value any) []string {
	switch v := value.(type) {
	case []any:
		keywords := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					keywords = append(keywords, trimmed)
				}
			}
		}
		return keywords
	case string:
		keywords := []string{}
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
		return keywords
	default:
		return []string{}
	}
}

// coerceSummary coerces the summary value to a string; missing yields ""
func coerceSummary(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// meaningful reports whether at least one field carries a non-sentinel value.
// All-sentinel results are treated as a failed parse.
func meaningful(result types.AnalysisResult) bool {
	if result.JDMatch != "" && result.JDMatch != MatchUnavailable {
		return true
	}
	if len(result.MissingKeywords) > 0 {
		return true
	}
	return result.ProfileSummary != ""
}
