package prompt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	trailingBlanks   = regexp.MustCompile(`[ \t]+$`)
	excessNewlines   = regexp.MustCompile(`\n{3,}`)
	dataURLPattern   = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)
	negativeFlag     = regexp.MustCompile(`(?i)--\s*neg(?:ative)?\b.*$`)
	negativeSection  = regexp.MustCompile(`(?i)\bnegative\s*prompt\s*[:=].*$`)
	leadingJSONFence = regexp.MustCompile("(?i)^```json")
)

// cleanText collapses whitespace runs into single spaces.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// sanitizeMultilineBlock normalizes line endings, trims line ends and squeezes blank runs.
func sanitizeMultilineBlock(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = trailingBlanks.ReplaceAllString(line, "")
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// InlineImage is a decoded base64 data URL.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// ParseDataURL decodes a data:<mime>;base64,<payload> string.
func ParseDataURL(raw string) (*InlineImage, error) {
	m := dataURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, errors.New("not a base64 data url")
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, err
	}
	mime := m[1]
	if mime == "" {
		mime = "image/png"
	}
	return &InlineImage{MIMEType: mime, Data: data}, nil
}

// dedupe drops blanks and case-insensitive repeats, keeping first occurrences.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = cleanText(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func hasAnyKeyword(lowerInput string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerInput, strings.ToLower(cleanText(kw))) {
			return true
		}
	}
	return false
}

func findMappedValues(lowerInput string, mappings []keywordMapping) []string {
	var out []string
	for _, m := range mappings {
		if hasAnyKeyword(lowerInput, m.keywords) {
			out = append(out, m.value)
		}
	}
	return out
}

func sanitizePositivePrompt(prompt string) string {
	prompt = negativeFlag.ReplaceAllString(prompt, "")
	prompt = negativeSection.ReplaceAllString(prompt, "")
	return cleanText(prompt)
}

// extractHairOnlySegments keeps the comma-separated parts of prompt that mention hair.
func extractHairOnlySegments(prompt string) []string {
	var out []string
	for _, segment := range strings.Split(sanitizePositivePrompt(prompt), ",") {
		segment = cleanText(segment)
		if segment == "" {
			continue
		}
		lower := strings.ToLower(segment)
		for _, kw := range hairKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, segment)
				break
			}
		}
	}
	return out
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if loc := leadingJSONFence.FindStringIndex(trimmed); loc != nil {
		trimmed = trimmed[loc[1]:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func parseModelPayload[T any](raw string) (T, error) {
	var decoded T
	cleaned := trimCodeFence(raw)
	if cleaned == "" {
		return decoded, errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return decoded, err
	}
	return decoded, nil
}

// stringList keeps only string entries of a loosely typed JSON array.
func stringList(raw []any) []string {
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, cleanText(s))
		}
	}
	return out
}

const maxPromptDetails = 18

// capDetails keeps every required item and fills the remaining room up to n from the
// other items, preserving order.
func capDetails(items, required []string, n int) []string {
	pinned := make(map[string]bool, len(required))
	for _, r := range required {
		pinned[strings.ToLower(cleanText(r))] = true
	}
	room := n
	for _, item := range items {
		if pinned[strings.ToLower(cleanText(item))] {
			room--
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch {
		case pinned[strings.ToLower(cleanText(item))]:
			out = append(out, item)
		case room > 0:
			out = append(out, item)
			room--
		}
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
