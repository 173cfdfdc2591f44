package classroom

import (
	"slices"
	"time"

	"github.com/dukerupert/classpoints/internal/model"
)

// DefaultProgressWindow is the trailing window used by the progress ranking.
const DefaultProgressWindow = 7 * 24 * time.Hour

// RankedStudent is a student annotated with its total-points rank.
// RankChange is always 0: no historical ranks are stored.
type RankedStudent struct {
	model.Student
	Rank       int `json:"rank"`
	RankChange int `json:"rankChange"`
}

// ProgressEntry is a student's net progress over a window and its position.
type ProgressEntry struct {
	Student  model.Student `json:"student"`
	Progress int           `json:"progress"`
	Rank     int           `json:"rank"`
}

// TotalRanking orders students by points, highest first, keeping input order
// among equals. Equal points share a rank and the next lower value takes its
// 1-based position (1, 1, 3, 4).
func TotalRanking(students []model.Student) []RankedStudent {
	ranked := make([]RankedStudent, len(students))
	for i, s := range students {
		ranked[i] = RankedStudent{Student: s}
	}
	slices.SortStableFunc(ranked, func(a, b RankedStudent) int {
		return b.Points - a.Points
	})

	rank := 1
	for i := range ranked {
		if i > 0 && ranked[i].Points < ranked[i-1].Points {
			rank = i + 1
		}
		ranked[i].Rank = rank
	}
	return ranked
}

// ProgressValue sums a student's history within [now-window, now]. Exchanges
// are ignored, reductions subtract and everything else adds. Events with no
// timestamp or outside the window do not count.
func ProgressValue(s model.Student, now time.Time, window time.Duration) int {
	from := now.Add(-window).UnixMilli()
	to := now.UnixMilli()

	delta := 0
	for _, ev := range s.History {
		if ev.Timestamp == 0 || ev.Timestamp < from || ev.Timestamp > to {
			continue
		}
		switch ev.Type {
		case model.EventExchange:
		case model.EventReduce:
			delta -= ev.Points
		default:
			delta += ev.Points
		}
	}
	return delta
}

// ProgressRanking ranks students with positive progress in the window, highest
// first. Rank is the 1-based position; ties are not merged.
func ProgressRanking(students []model.Student, now time.Time, window time.Duration) []ProgressEntry {
	entries := make([]ProgressEntry, 0, len(students))
	for _, s := range students {
		if p := ProgressValue(s, now, window); p > 0 {
			entries = append(entries, ProgressEntry{Student: s, Progress: p})
		}
	}
	slices.SortStableFunc(entries, func(a, b ProgressEntry) int {
		return b.Progress - a.Progress
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// TotalRanking ranks the current roster by points.
func (c *Classroom) TotalRanking() []RankedStudent {
	c.mu.Lock()
	students := cloneStudents(c.students)
	c.mu.Unlock()
	return TotalRanking(students)
}

// ProgressRanking ranks the current roster by progress over window. A
// non-positive window selects DefaultProgressWindow.
func (c *Classroom) ProgressRanking(window time.Duration) []ProgressEntry {
	if window <= 0 {
		window = DefaultProgressWindow
	}
	c.mu.Lock()
	students := cloneStudents(c.students)
	now := c.now()
	c.mu.Unlock()
	return ProgressRanking(students, now, window)
}
