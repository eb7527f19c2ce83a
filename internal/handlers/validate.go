package handlers

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Validation limits for request fields.
const (
	maxEventNameLen       = 255
	maxEventDescLen       = 20_000
	maxTemplateDescLen    = 2_000
	maxBlueprintFieldsLen = 100
	maxCategoryLen        = 100
)

// timeLayouts are the accepted forms of a date-time field.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 or a plain "YYYY-MM-DD hh:mm:ss" date-time.
// Values without a zone are read as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// validateEventName checks a required event name.
func validateEventName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "The name field is required."
	}
	if utf8.RuneCountInString(name) > maxEventNameLen {
		return "The name may not be greater than 255 characters."
	}
	return ""
}

// validateEventDescription checks an optional event description.
func validateEventDescription(desc string) string {
	if utf8.RuneCountInString(desc) > maxEventDescLen {
		return "The description may not be greater than 20,000 characters."
	}
	return ""
}

// validateTemplateDescription checks an optional template description.
func validateTemplateDescription(desc string) string {
	if utf8.RuneCountInString(desc) > maxTemplateDescLen {
		return "The description may not be greater than 2,000 characters."
	}
	return ""
}
