package statement

import (
	"strings"
	"time"
)

// Date layouts accepted in DocValueDate
const (
	DateLayoutCompact  = "20060102"
	DateLayoutISO      = "2006-01-02"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutISOT     = "2006-01-02T15:04:05"
	DateLayoutEuropean = "02.01.2006"
)

var dateLayouts = []string{
	DateLayoutCompact,
	DateLayoutISO,
	DateLayoutFull,
	DateLayoutISOT,
	DateLayoutEuropean,
}

// ParseDate parses a statement date into a UTC calendar date; unparseable input yields nil
func ParseDate(s string) *time.Time {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}
