package classroom

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/dukerupert/classpoints/internal/model"
)

// GroupScore aggregates the points of a group's members.
type GroupScore struct {
	model.Group
	TotalPoints int     `json:"totalPoints"`
	MemberCount int     `json:"memberCount"`
	AvgPoints   float64 `json:"avgPoints"`
	Rank        int     `json:"rank,omitempty"`
}

func (c *Classroom) ListGroups() []model.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.groups)
}

func (c *Classroom) GetGroup(id string) (*model.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.groupIndex(id)
	if i < 0 {
		return nil, notFoundErr("get group", "group", id)
	}
	g := c.groups[i]
	return &g, nil
}

func (c *Classroom) CreateGroup(ctx context.Context, name string) (*model.Group, error) {
	const op = "create group"
	g := model.Group{Name: strings.TrimSpace(name)}
	if err := c.check(op, g); err != nil {
		return nil, err
	}

	c.mu.Lock()
	g.ID = c.newID()
	next := appendCopy(c.groups, g)
	if err := c.persist(ctx, collection{CollectionGroups, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.groups = next
	c.mu.Unlock()

	c.emit("group", "created", g.ID)
	return &g, nil
}

func (c *Classroom) RenameGroup(ctx context.Context, id, name string) (*model.Group, error) {
	const op = "rename group"
	g := model.Group{ID: id, Name: strings.TrimSpace(name)}
	if err := c.check(op, g); err != nil {
		return nil, err
	}

	c.mu.Lock()
	i := c.groupIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "group", id)
	}
	next := replaceAt(c.groups, i, g)
	if err := c.persist(ctx, collection{CollectionGroups, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.groups = next
	c.mu.Unlock()

	c.emit("group", "updated", id)
	return &g, nil
}

// DeleteGroup removes a group and unassigns its members. Member points and
// history are untouched.
func (c *Classroom) DeleteGroup(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.groupIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return notFoundErr("delete group", "group", id)
	}

	nextGroups := removeAt(c.groups, i)
	nextStudents := c.students
	var unassigned int
	for j, s := range c.students {
		if s.GroupID != id {
			continue
		}
		if unassigned == 0 {
			nextStudents = slices.Clone(c.students)
		}
		s.GroupID = model.Unassigned
		nextStudents[j] = s
		unassigned++
	}

	cols := []collection{{CollectionGroups, nextGroups}}
	if unassigned > 0 {
		cols = append(cols, collection{CollectionStudents, nextStudents})
	}
	if err := c.persist(ctx, cols...); err != nil {
		c.mu.Unlock()
		return err
	}
	c.groups = nextGroups
	c.students = nextStudents
	c.mu.Unlock()

	c.logger.Debug("group deleted", "group", id, "unassigned", unassigned)
	c.emit("group", "deleted", id)
	return nil
}

// GroupMembers returns the students assigned to a group, ordered by name.
func (c *Classroom) GroupMembers(groupID string) ([]model.Student, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groupIndex(groupID) < 0 {
		return nil, notFoundErr("group members", "group", groupID)
	}
	members := []model.Student{}
	for _, s := range c.students {
		if s.GroupID == groupID {
			members = append(members, cloneStudent(s))
		}
	}
	c.sortByName(members)
	return members, nil
}

// AddMember moves a student into a group, leaving any previous group.
func (c *Classroom) AddMember(ctx context.Context, groupID, studentID string) error {
	return c.setMembership(ctx, "add member", groupID, studentID, true)
}

// RemoveMember unassigns a student from a group it belongs to.
func (c *Classroom) RemoveMember(ctx context.Context, groupID, studentID string) error {
	return c.setMembership(ctx, "remove member", groupID, studentID, false)
}

func (c *Classroom) setMembership(ctx context.Context, op, groupID, studentID string, join bool) error {
	c.mu.Lock()
	if c.groupIndex(groupID) < 0 {
		c.mu.Unlock()
		return notFoundErr(op, "group", groupID)
	}
	i := c.studentIndex(studentID)
	if i < 0 {
		c.mu.Unlock()
		return notFoundErr(op, "student", studentID)
	}

	s := c.students[i]
	if join {
		s.GroupID = groupID
	} else {
		if s.GroupID != groupID {
			c.mu.Unlock()
			return validationErr(op, "student %q is not a member of group %q", studentID, groupID)
		}
		s.GroupID = model.Unassigned
	}

	next := replaceAt(c.students, i, s)
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.students = next
	c.mu.Unlock()

	c.emit("student", "updated", studentID)
	return nil
}

// GroupScore aggregates one group. AvgPoints is rounded to one decimal and is
// 0 for a group without members.
func (c *Classroom) GroupScore(groupID string) (*GroupScore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.groupIndex(groupID)
	if i < 0 {
		return nil, notFoundErr("group score", "group", groupID)
	}
	score := scoreGroup(c.groups[i], c.students)
	return &score, nil
}

// GroupRanking scores every group and ranks them by average points, highest
// first, with the same tie handling as TotalRanking.
func (c *Classroom) GroupRanking() []GroupScore {
	c.mu.Lock()
	scores := make([]GroupScore, len(c.groups))
	for i, g := range c.groups {
		scores[i] = scoreGroup(g, c.students)
	}
	c.mu.Unlock()
	return RankGroups(scores)
}

// RankGroups sorts scores by AvgPoints descending and assigns competition
// ranks (1, 1, 3).
func RankGroups(scores []GroupScore) []GroupScore {
	slices.SortStableFunc(scores, func(a, b GroupScore) int {
		switch {
		case a.AvgPoints > b.AvgPoints:
			return -1
		case a.AvgPoints < b.AvgPoints:
			return 1
		}
		return 0
	})
	rank := 1
	for i := range scores {
		if i > 0 && scores[i].AvgPoints < scores[i-1].AvgPoints {
			rank = i + 1
		}
		scores[i].Rank = rank
	}
	return scores
}

func scoreGroup(g model.Group, students []model.Student) GroupScore {
	score := GroupScore{Group: g}
	for _, s := range students {
		if s.GroupID == g.ID {
			score.TotalPoints += s.Points
			score.MemberCount++
		}
	}
	if score.MemberCount > 0 {
		score.AvgPoints = roundTo(float64(score.TotalPoints)/float64(score.MemberCount), 1)
	}
	return score
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
