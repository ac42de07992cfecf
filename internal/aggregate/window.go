// Package aggregate computes totals, breakdowns and rankings over a slice of
// records restricted to a time window. Every function is pure.
package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies how a Window was built.
type Kind string

const (
	KindDay      Kind = "day"
	KindTrailing Kind = "trailing"
	KindMonth    Kind = "month"
)

// Window is the closed interval [From, To] in the location of From.
type Window struct {
	Name string
	Kind Kind
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Days is the number of calendar days the window spans.
func (w Window) Days() int {
	from := w.From
	to := w.To.In(from.Location())
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}

func (w Window) String() string {
	return w.Name
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Day is the calendar date of t in t's location.
func Day(t time.Time) Window {
	from := startOfDay(t)
	return Window{
		Name: from.Format("2006-01-02"),
		Kind: KindDay,
		From: from,
		To:   from.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

func Today(now time.Time) Window {
	w := Day(now)
	w.Name = "today"
	return w
}

func Yesterday(now time.Time) Window {
	w := Day(startOfDay(now).AddDate(0, 0, -1))
	w.Name = "yesterday"
	return w
}

// TrailingDays is [now - n days, now], both ends inclusive.
func TrailingDays(now time.Time, n int) Window {
	return Window{
		Name: fmt.Sprintf("%dd", n),
		Kind: KindTrailing,
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// Week is the trailing seven days.
func Week(now time.Time) Window {
	w := TrailingDays(now, 7)
	w.Name = "week"
	return w
}

// Month is the calendar month of now.
func Month(now time.Time) Window {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Window{
		Name: "month",
		Kind: KindMonth,
		From: from,
		To:   from.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// ParseWindow resolves today, yesterday, week, month or "<N>d" relative to now.
// The empty string means today.
func ParseWindow(name string, now time.Time) (Window, error) {
	switch s := strings.ToLower(strings.TrimSpace(name)); s {
	case "", "today":
		return Today(now), nil
	case "yesterday":
		return Yesterday(now), nil
	case "week":
		return Week(now), nil
	case "month":
		return Month(now), nil
	default:
		if n, ok := strings.CutSuffix(s, "d"); ok {
			days, err := strconv.Atoi(n)
			if err == nil && days > 0 && days <= 3660 {
				return TrailingDays(now, days), nil
			}
		}
		return Window{}, fmt.Errorf("unknown window %q: want today, yesterday, week, month or <N>d", name)
	}
}
