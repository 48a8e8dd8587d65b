package mailparse

import (
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// fallbackLayouts cover dates net/mail rejects. Layouts without a zone
// are read as UTC.
var fallbackLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 -0700 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// parseDate returns the Date header as a time, or the zero time.
func parseDate(h mail.Header) time.Time {
	if t, err := h.Date(); err == nil && !t.IsZero() {
		return t
	}
	return parseDateFallback(h.Get("Date"))
}

func parseDateFallback(value string) time.Time {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, "("); i > 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return time.Time{}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
