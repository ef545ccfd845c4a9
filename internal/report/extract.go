package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when model output holds no decodable JSON object.
var ErrNoJSON = errors.New("no valid JSON in model response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// ExtractJSON decodes the JSON object in content into v. It tries, in
// order, the whole content, each fenced code block, and the span from the
// first '{' to the last '}'.
func ExtractJSON(content string, v any) error {
	candidates := []string{content}
	for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		if !strings.HasPrefix(strings.TrimSpace(c), "{") {
			continue
		}
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoJSON, preview(content, 200))
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
