// Package filter decides whether a completed response is eligible for
// output.
package filter

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// ShouldReject reports whether a response should be suppressed.
//
// A response is rejected when any of the enabled criteria fails:
//   - statuses is non-empty and does not contain status
//   - substr is set and the body is absent or does not contain it
//   - re is non-nil and the body is absent or does not match it
//
// The three checks are independent. An absent body is an automatic
// reject for the substring and regex criteria, never a pass.
func ShouldReject(status int, body *string, statuses []int, substr string, re *regexp.Regexp) bool {
	if len(statuses) > 0 && !slices.Contains(statuses, status) {
		return true
	}

	if substr != "" {
		if body == nil || !strings.Contains(*body, substr) {
			return true
		}
	}

	if re != nil {
		if body == nil || !re.MatchString(*body) {
			return true
		}
	}

	return false
}

// Compile compiles a body-filter pattern. An invalid pattern logs a
// warning and disables regex filtering rather than failing the run.
func Compile(pattern string, logger *slog.Logger) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Warn("invalid filter regex, disabling regex filtering",
			"pattern", pattern,
			"error", err,
		)
		return nil
	}
	return re
}
