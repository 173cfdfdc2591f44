package classroom

import (
	"context"
	"slices"
	"strings"

	"github.com/dukerupert/classpoints/internal/model"
)

// StudentInput holds the editable fields of a student.
type StudentInput struct {
	Name      string `json:"name"`
	StudentNo string `json:"studentNo"`
	GroupID   string `json:"groupId"`
	Avatar    string `json:"avatar"`
}

func (in StudentInput) apply(s *model.Student) {
	s.Name = strings.TrimSpace(in.Name)
	s.StudentNo = strings.TrimSpace(in.StudentNo)
	s.GroupID = in.GroupID
	s.Avatar = strings.TrimSpace(in.Avatar)
}

// ListStudents returns all students ordered by name.
func (c *Classroom) ListStudents() []model.Student {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := cloneStudents(c.students)
	c.sortByName(out)
	return out
}

// SearchStudents returns students whose name or student number contains q,
// case-insensitively, ordered by name. An empty q matches everyone.
func (c *Classroom) SearchStudents(q string) []model.Student {
	q = strings.ToLower(strings.TrimSpace(q))

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Student
	for _, s := range c.students {
		if q == "" ||
			strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.StudentNo), q) {
			out = append(out, cloneStudent(s))
		}
	}
	c.sortByName(out)
	return nonNil(out)
}

func (c *Classroom) sortByName(students []model.Student) {
	slices.SortStableFunc(students, func(a, b model.Student) int {
		return c.collator.CompareString(a.Name, b.Name)
	})
}

func (c *Classroom) GetStudent(id string) (*model.Student, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.studentIndex(id)
	if i < 0 {
		return nil, notFoundErr("get student", "student", id)
	}
	s := cloneStudent(c.students[i])
	return &s, nil
}

// CreateStudent registers a student with a zero balance and empty history.
func (c *Classroom) CreateStudent(ctx context.Context, in StudentInput) (*model.Student, error) {
	const op = "create student"

	c.mu.Lock()
	s := model.Student{
		ID:      c.newID(),
		History: []model.PointEvent{},
		Badges:  []model.Badge{},
	}
	in.apply(&s)
	if err := c.checkStudent(op, s); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	next := appendCopy(c.students, s)
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.students = next
	c.mu.Unlock()

	c.emit("student", "created", s.ID)
	out := cloneStudent(s)
	return &out, nil
}

// UpdateStudent replaces the editable fields of a student. Points, history and
// badges are left untouched.
func (c *Classroom) UpdateStudent(ctx context.Context, id string, in StudentInput) (*model.Student, error) {
	const op = "update student"

	c.mu.Lock()
	i := c.studentIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "student", id)
	}
	s := c.students[i]
	in.apply(&s)
	if err := c.checkStudent(op, s); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	next := replaceAt(c.students, i, s)
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.students = next
	c.mu.Unlock()

	c.emit("student", "updated", id)
	out := cloneStudent(s)
	return &out, nil
}

// DeleteStudent removes a student. Its group is not affected.
func (c *Classroom) DeleteStudent(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.studentIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return notFoundErr("delete student", "student", id)
	}
	next := removeAt(c.students, i)
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.students = next
	c.mu.Unlock()

	c.emit("student", "deleted", id)
	return nil
}

// DeleteStudents removes every listed student in one write and returns how
// many were removed. Unknown ids are ignored.
func (c *Classroom) DeleteStudents(ctx context.Context, ids []string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	c.mu.Lock()
	next := make([]model.Student, 0, len(c.students))
	var removed []string
	for _, s := range c.students {
		if drop[s.ID] {
			removed = append(removed, s.ID)
			continue
		}
		next = append(next, s)
	}
	if len(removed) == 0 {
		c.mu.Unlock()
		return 0, nil
	}
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.students = next
	c.mu.Unlock()

	for _, id := range removed {
		c.emit("student", "deleted", id)
	}
	return len(removed), nil
}

// checkStudent validates s and its group reference. Caller holds c.mu.
func (c *Classroom) checkStudent(op string, s model.Student) error {
	if err := c.check(op, s); err != nil {
		return err
	}
	if s.GroupID != model.Unassigned && c.groupIndex(s.GroupID) < 0 {
		return validationErr(op, "group %q does not exist", s.GroupID)
	}
	return nil
}
