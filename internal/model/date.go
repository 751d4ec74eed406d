package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the plain calendar-date wire format.
const DateLayout = "2006-01-02"

// ParseDate parses a date field in either plain "2006-01-02" form or full
// RFC 3339. All comparisons in the engine go through this helper so a date
// never gets compared as a string.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Errorf("model: unparsable date %q", s)
	}
	return t, nil
}
