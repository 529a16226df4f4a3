// Package classify implements the pure error classification rules that turn
// a raw failure into a task.ErrorDetails. It has no knowledge of chromedp,
// the queue, or workers — it only looks at error messages.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tomasbasham/webcapd/internal/task"
)

// timeoutMsPattern extracts the millisecond figure a "Timeout" message
// embeds, e.g. "Timeout 30000ms exceeded (30000ms)".
var timeoutMsPattern = regexp.MustCompile(`\((\d+)ms\)`)

// FromException maps a raw error into a tagged ErrorDetails using the
// substring rules from spec.md §4.5: "Timeout" implies a timeout error (with
// its duration extracted if present), "disconnect"/"closed" implies a
// dropped connection, anything else is internal.
func FromException(err error) task.ErrorDetails {
	if err == nil {
		return task.NewInternalError("classify: nil error")
	}

	msg := err.Error()

	if strings.Contains(msg, "Timeout") {
		var ms int64
		if m := timeoutMsPattern.FindStringSubmatch(msg); m != nil {
			if v, convErr := strconv.ParseInt(m[1], 10, 64); convErr == nil {
				ms = v
			}
		}
		return task.ErrorDetails{
			Type:      task.ErrorTypeTimeout,
			Message:   msg,
			TimeoutMs: ms,
		}
	}

	if IsDisconnected(msg) {
		return task.NewConnectionError(msg)
	}

	return task.NewInternalError(msg)
}

// IsDisconnected reports whether msg indicates a dropped CDP session or a
// closed page/browser, per the substring fallback described in spec.md §9:
// fragile, but the underlying library only ever surfaces these conditions
// as plain error messages.
func IsDisconnected(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "disconnect") || strings.Contains(lower, "closed")
}
