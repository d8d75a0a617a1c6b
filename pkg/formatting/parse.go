package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse unmarshals content as JSON into T. Model responses often wrap
// their JSON in a markdown code fence, so when direct parsing fails the
// fenced body is extracted and retried. Returns ErrParseFailed when
// neither attempt yields valid JSON.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, nil
	}

	if matches := jsonBlockRegex.FindStringSubmatch(content); len(matches) >= 2 {
		fenced := strings.TrimSpace(matches[1])
		if err := json.Unmarshal([]byte(fenced), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
}
