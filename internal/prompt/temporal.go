package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/baodaydungsone/chai/internal/llm"
)

func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}

// Temporal renders the date & time section, or "" when neither awareness flag
// is on or at is nil. subject is "You" for one persona and "Characters" for a
// group.
func Temporal(f llm.Features, at *time.Time, loc *time.Location, subject string) string {
	if at == nil || !(f.TimeAwareness || f.DateAwareness) {
		return ""
	}
	t := *at
	if loc != nil {
		t = t.In(loc)
	}

	var b strings.Builder
	section(&b, "DATE & TIME CONTEXT")
	if f.TimeAwareness {
		fmt.Fprintf(&b, "\nThe user's message was sent at %s. It is currently %s.", t.Format("15:04"), TimeOfDay(t))
	}
	if f.DateAwareness {
		fmt.Fprintf(&b, "\nToday's date is %s.", t.Format("Monday, January 2, 2006"))
	}
	fmt.Fprintf(&b, "\n%s should subtly acknowledge the date and/or time of day when it feels natural and relevant (the day of the week, an upcoming holiday, the late hour). Do not force this into every message.", subject)
	return b.String()
}
