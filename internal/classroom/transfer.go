package classroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/dukerupert/classpoints/internal/model"
)

// Export returns a copy of every collection.
func (c *Classroom) Export() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.Snapshot{
		Students:  cloneStudents(c.students),
		Groups:    slices.Clone(c.groups),
		Rules:     slices.Clone(c.rules),
		ShopItems: slices.Clone(c.items),
	}
}

// ImportSummary counts the entities written by Import. A nil count means the
// collection was absent from the payload and left unchanged.
type ImportSummary struct {
	Students  *int `json:"students,omitempty"`
	Groups    *int `json:"groups,omitempty"`
	Rules     *int `json:"pointsRules,omitempty"`
	ShopItems *int `json:"shopGoods,omitempty"`
}

type importDoc struct {
	Students  *[]model.Student  `json:"students"`
	Groups    *[]model.Group    `json:"groups"`
	Rules     *[]model.Rule     `json:"pointsRules"`
	ShopItems *[]model.ShopItem `json:"shopGoods"`
}

// Import replaces collections from an exported document. A top-level JSON
// array is read as a student list. An object replaces each collection key it
// contains and leaves the others alone. All replaced collections are written
// together.
func (c *Classroom) Import(ctx context.Context, data []byte) (*ImportSummary, error) {
	const op = "import"

	var doc importDoc
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, validationErr(op, "empty document")
	case trimmed[0] == '[':
		var students []model.Student
		if err := json.Unmarshal(trimmed, &students); err != nil {
			return nil, validationErr(op, "decode students: %v", err)
		}
		doc.Students = &students
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, validationErr(op, "decode document: %v", err)
		}
	default:
		return nil, validationErr(op, "document must be a JSON array or object")
	}

	c.mu.Lock()
	var (
		cols []collection
		sum  ImportSummary
	)
	nextStudents, nextGroups, nextRules, nextItems := c.students, c.groups, c.rules, c.items

	if doc.Groups != nil {
		nextGroups = c.prepareGroups(*doc.Groups)
		if err := checkGroups(c, op, nextGroups); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		cols = append(cols, collection{CollectionGroups, nextGroups})
		sum.Groups = count(nextGroups)
	}
	if doc.Students != nil {
		nextStudents = normalizeStudents(*doc.Students, c.newID)
		if err := checkStudents(c, op, nextStudents, nextGroups); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		cols = append(cols, collection{CollectionStudents, nextStudents})
		sum.Students = count(nextStudents)
	} else if doc.Groups != nil {
		var changed bool
		if nextStudents, changed = unassignMissing(c.students, nextGroups); changed {
			cols = append(cols, collection{CollectionStudents, nextStudents})
		}
	}
	if doc.Rules != nil {
		nextRules = c.prepareRules(*doc.Rules)
		if err := checkRules(c, op, nextRules); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		cols = append(cols, collection{CollectionRules, nextRules})
		sum.Rules = count(nextRules)
	}
	if doc.ShopItems != nil {
		nextItems = c.prepareItems(*doc.ShopItems)
		if err := checkItems(c, op, nextItems); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		cols = append(cols, collection{CollectionShopItems, nextItems})
		sum.ShopItems = count(nextItems)
	}

	if len(cols) == 0 {
		c.mu.Unlock()
		return &sum, nil
	}
	if err := c.persist(ctx, cols...); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.students, c.groups, c.rules, c.items = nextStudents, nextGroups, nextRules, nextItems
	c.mu.Unlock()

	c.logger.Info("classroom imported", "collections", len(cols))
	for _, col := range cols {
		c.emit(col.name, "replaced", "")
	}
	return &sum, nil
}

// ReplaceStudents overwrites the student collection. Entries without an id
// get one. Every group id must name an existing group.
func (c *Classroom) ReplaceStudents(ctx context.Context, students []model.Student) error {
	const op = "replace students"
	c.mu.Lock()
	next := normalizeStudents(students, c.newID)
	if err := checkStudents(c, op, next, c.groups); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.students = next
	c.mu.Unlock()
	c.emit(CollectionStudents, "replaced", "")
	return nil
}

// ReplaceGroups overwrites the group collection. Students whose group is
// gone become unassigned.
func (c *Classroom) ReplaceGroups(ctx context.Context, groups []model.Group) error {
	const op = "replace groups"
	c.mu.Lock()
	next := c.prepareGroups(groups)
	if err := checkGroups(c, op, next); err != nil {
		c.mu.Unlock()
		return err
	}
	cols := []collection{{CollectionGroups, next}}
	students, changed := unassignMissing(c.students, next)
	if changed {
		cols = append(cols, collection{CollectionStudents, students})
	}
	if err := c.persist(ctx, cols...); err != nil {
		c.mu.Unlock()
		return err
	}
	c.groups = next
	c.students = students
	c.mu.Unlock()
	c.emit(CollectionGroups, "replaced", "")
	if changed {
		c.emit(CollectionStudents, "replaced", "")
	}
	return nil
}

func (c *Classroom) ReplaceRules(ctx context.Context, rules []model.Rule) error {
	const op = "replace rules"
	c.mu.Lock()
	next := c.prepareRules(rules)
	if err := checkRules(c, op, next); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.persist(ctx, collection{CollectionRules, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.rules = next
	c.mu.Unlock()
	c.emit(CollectionRules, "replaced", "")
	return nil
}

func (c *Classroom) ReplaceShopItems(ctx context.Context, items []model.ShopItem) error {
	const op = "replace shop items"
	c.mu.Lock()
	next := c.prepareItems(items)
	if err := checkItems(c, op, next); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.persist(ctx, collection{CollectionShopItems, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = next
	c.mu.Unlock()
	c.emit(CollectionShopItems, "replaced", "")
	return nil
}

func (c *Classroom) prepareGroups(in []model.Group) []model.Group {
	out := make([]model.Group, len(in))
	for i, g := range in {
		if g.ID == "" {
			g.ID = c.newID()
		}
		out[i] = g
	}
	return out
}

func (c *Classroom) prepareRules(in []model.Rule) []model.Rule {
	out := make([]model.Rule, len(in))
	for i, r := range in {
		if r.ID == "" {
			r.ID = c.newID()
		}
		out[i] = r
	}
	return out
}

func (c *Classroom) prepareItems(in []model.ShopItem) []model.ShopItem {
	out := make([]model.ShopItem, len(in))
	for i, it := range in {
		if it.ID == "" {
			it.ID = c.newID()
		}
		out[i] = it
	}
	return out
}

// checkAll validates every element, naming the first offender by index.
func checkAll[T any](c *Classroom, op, name string, items []T) error {
	for i := range items {
		err := c.check(op, items[i])
		var e *Error
		if errors.As(err, &e) {
			return validationErr(op, "%s[%d]: %s", name, i, e.Msg)
		}
	}
	return nil
}

// uniqueIDs rejects a collection that repeats an id.
func uniqueIDs[T any](op, name string, items []T, id func(T) string) error {
	seen := make(map[string]int, len(items))
	for i, it := range items {
		k := id(it)
		if j, ok := seen[k]; ok {
			return validationErr(op, "%s[%d]: duplicate id %q (first at %d)", name, i, k, j)
		}
		seen[k] = i
	}
	return nil
}

func checkGroups(c *Classroom, op string, groups []model.Group) error {
	if err := checkAll(c, op, CollectionGroups, groups); err != nil {
		return err
	}
	return uniqueIDs(op, CollectionGroups, groups, func(g model.Group) string { return g.ID })
}

func checkRules(c *Classroom, op string, rules []model.Rule) error {
	if err := checkAll(c, op, CollectionRules, rules); err != nil {
		return err
	}
	return uniqueIDs(op, CollectionRules, rules, func(r model.Rule) string { return r.ID })
}

func checkItems(c *Classroom, op string, items []model.ShopItem) error {
	if err := checkAll(c, op, CollectionShopItems, items); err != nil {
		return err
	}
	return uniqueIDs(op, CollectionShopItems, items, func(it model.ShopItem) string { return it.ID })
}

// checkStudents validates students against the groups they will live with.
func checkStudents(c *Classroom, op string, students []model.Student, groups []model.Group) error {
	if err := checkAll(c, op, CollectionStudents, students); err != nil {
		return err
	}
	if err := uniqueIDs(op, CollectionStudents, students, func(s model.Student) string { return s.ID }); err != nil {
		return err
	}
	known := groupSet(groups)
	for i, s := range students {
		if _, ok := known[s.GroupID]; s.GroupID != model.Unassigned && !ok {
			return validationErr(op, "%s[%d]: group %q does not exist", CollectionStudents, i, s.GroupID)
		}
	}
	return nil
}

// unassignMissing clears group ids that name no group in groups. The input
// slice is returned unchanged when every reference resolves.
func unassignMissing(students []model.Student, groups []model.Group) ([]model.Student, bool) {
	known := groupSet(groups)
	out := students
	changed := false
	for i, s := range students {
		if _, ok := known[s.GroupID]; s.GroupID == model.Unassigned || ok {
			continue
		}
		if !changed {
			out = slices.Clone(students)
			changed = true
		}
		s.GroupID = model.Unassigned
		out[i] = s
	}
	return out, changed
}

func groupSet(groups []model.Group) map[string]struct{} {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g.ID] = struct{}{}
	}
	return set
}

func count[T any](s []T) *int {
	n := len(s)
	return &n
}
