// Package trainingyear derives the training year ordinal from a training start date.
package trainingyear

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
)

var (
	// ErrUnparsableDate is returned when a start date matches none of the layouts
	ErrUnparsableDate = errors.New("unparsable training start date")

	// ErrNotStarted is returned when the reference time lies before the start date
	ErrNotStarted = errors.New("training has not started yet")
)

// DefaultLayouts accepts German date text first, then ISO dates.
var DefaultLayouts = []string{"02.01.2006", "2006-01-02"}

// ParseStartDate tries each layout in order. An empty layout list falls back to DefaultLayouts.
func ParseStartDate(text string, layouts []string) (time.Time, error) {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}

	text = strings.TrimSpace(text)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
}

// Derive returns the training year in progress at the given time. The first year
// runs from the start date up to the day before its first anniversary.
func Derive(startDate time.Time, at time.Time) (int, error) {
	start := dateOnly(startDate)
	ref := dateOnly(at)
	if ref.Before(start) {
		return 0, ErrNotStarted
	}

	years := ref.Year() - start.Year()
	if ref.Month() < start.Month() || (ref.Month() == start.Month() && ref.Day() < start.Day()) {
		years--
	}
	return years + 1, nil
}

// Anniversaries counts the anniversaries of the start date that fall after from
// and up to and including to. It is 0 when to is not after from.
func Anniversaries(startDate, from, to time.Time) int {
	if !dateOnly(to).After(dateOnly(from)) {
		return 0
	}
	return completedYears(startDate, to) - completedYears(startDate, from)
}

func completedYears(startDate, at time.Time) int {
	year, err := Derive(startDate, at)
	if err != nil {
		return 0
	}
	return year - 1
}

// DeriveFromText parses the start date and derives the training year at the given time.
func DeriveFromText(text string, layouts []string, at time.Time) (int, error) {
	start, err := ParseStartDate(text, layouts)
	if err != nil {
		return 0, err
	}
	return Derive(start, at)
}

// Complete fills in a missing (zero) training year from the start date. It returns
// the input unchanged and false when the year is already set or cannot be derived.
func Complete(cc structs.CommentContext, layouts []string, at time.Time) (structs.CommentContext, bool) {
	if cc.GetTrainingYear() != 0 {
		return cc, false
	}

	year, err := DeriveFromText(cc.GetTrainingStartDate(), layouts, at)
	if err != nil {
		return cc, false
	}
	return structs.NewCommentContext(cc.GetTrainingStartDate(), year, cc.GetTeamName()), true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
