package tasks

import (
	"regexp"
	"strings"
)

var (
	taskHashPattern = regexp.MustCompile(`(?i)\btask\s*#(\d+)`)
	bareHashPattern = regexp.MustCompile(`#(\d+)`)
)

// ExtractTaskID recovers a task id from prose like "Task #3 created".
// It tries "Task #<n>" first and then any "#<n>".
func ExtractTaskID(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if m := taskHashPattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1], true
	}
	if m := bareHashPattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1], true
	}
	return "", false
}
