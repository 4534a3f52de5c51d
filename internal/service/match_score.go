package service

import (
	"strings"
	"time"

	"github.com/quocanhngo/lostfound/internal/model"
)

// Score weights. The maximum total is 100.
const (
	categoryPoints = 40
	colorPoints    = 40

	locationExactPoints   = 10
	locationPartialPoints = 7

	brandExactPoints   = 10
	brandPartialPoints = 5
)

// datePoints is indexed by the number of whole days between the two dates
var datePoints = [...]int{10, 8, 5, 3}

// Score rates how likely a and b describe the same object. It is a pure
// function of the two items and symmetric in its arguments.
func Score(a, b *model.Item) int {
	score := 0
	if strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(b.Category)) {
		score += categoryPoints
	}
	if strings.EqualFold(strings.TrimSpace(a.Color), strings.TrimSpace(b.Color)) {
		score += colorPoints
	}
	score += dateScore(a.OccurredAt, b.OccurredAt)
	score += textScore(a.Location, b.Location, locationExactPoints, locationPartialPoints)
	score += textScore(a.Brand, b.Brand, brandExactPoints, brandPartialPoints)
	return min(score, 100)
}

func dateScore(a, b time.Time) int {
	days := dayDiff(a, b)
	if days < len(datePoints) {
		return datePoints[days]
	}
	return 0
}

// dayDiff returns the absolute number of calendar days between a and b, in UTC
func dayDiff(a, b time.Time) int {
	da := civilDate(a)
	db := civilDate(b)
	hours := da.Sub(db).Hours()
	if hours < 0 {
		hours = -hours
	}
	return int(hours / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// textScore compares free text case-insensitively: exact equality earns
// exact points, containment in either direction earns partial points.
// An empty side earns nothing.
func textScore(a, b string, exact, partial int) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return partial
	}
	return 0
}
