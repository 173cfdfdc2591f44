package classroom

import "github.com/dukerupert/classpoints/internal/model"

// StudentPoints names a student and its balance.
type StudentPoints struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Stats is the class overview.
type Stats struct {
	TotalStudents int            `json:"totalStudents"`
	TotalPoints   int            `json:"totalPoints"`
	AveragePoints float64        `json:"averagePoints"`
	Highest       *StudentPoints `json:"highest"`
	Lowest        *StudentPoints `json:"lowest"`
	Groups        []GroupScore   `json:"groups"`
}

// Stats summarizes the roster. AveragePoints is rounded to two decimals.
// Highest and Lowest are the first students reaching the extreme and are nil
// for an empty class.
func (c *Classroom) Stats() Stats {
	c.mu.Lock()
	students := cloneStudents(c.students)
	scores := make([]GroupScore, len(c.groups))
	for i, g := range c.groups {
		scores[i] = scoreGroup(g, c.students)
	}
	c.mu.Unlock()

	st := Stats{TotalStudents: len(students), Groups: RankGroups(scores)}
	if len(students) == 0 {
		return st
	}

	hi, lo := students[0], students[0]
	for _, s := range students {
		st.TotalPoints += s.Points
		if s.Points > hi.Points {
			hi = s
		}
		if s.Points < lo.Points {
			lo = s
		}
	}
	st.AveragePoints = roundTo(float64(st.TotalPoints)/float64(len(students)), 2)
	st.Highest = pointsOf(hi)
	st.Lowest = pointsOf(lo)
	return st
}

func pointsOf(s model.Student) *StudentPoints {
	return &StudentPoints{ID: s.ID, Name: s.Name, Points: s.Points}
}
