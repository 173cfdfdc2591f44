// Package classroom owns a class roster and its points ledger: students,
// groups, point rules and shop items, plus the ranking, aggregation and
// exchange logic that operates over them.
//
// A Classroom holds its state in memory and writes every touched collection
// through a Store before an operation returns. State is copy-on-write: slices
// and entities held by the Classroom are never mutated in place, so a failed
// save can be abandoned without leaving a partial change behind.
package classroom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/classpoints/internal/model"
)

// Collection names used with Store.
const (
	CollectionStudents  = "students"
	CollectionGroups    = "groups"
	CollectionRules     = "pointsRules"
	CollectionShopItems = "shopGoods"
)

// Store loads and saves named collections.
type Store interface {
	// Load decodes the named collection into dst. It reports false when the
	// collection has never been saved.
	Load(ctx context.Context, name string, dst any) (bool, error)
	Save(ctx context.Context, name string, v any) error
	// SaveAll writes several collections atomically: all of them or none.
	SaveAll(ctx context.Context, collections map[string]any) error
}

// Change describes a committed mutation.
type Change struct {
	Entity string
	Action string
	ID     string
}

// Options configures a Classroom. Zero values select defaults.
type Options struct {
	NewID    func() string
	Now      func() time.Time
	OnChange func(Change)
	Logger   *slog.Logger
	// Language orders student names. Defaults to language.Und.
	Language language.Tag
}

type Classroom struct {
	mu       sync.Mutex
	store    Store
	newID    func() string
	now      func() time.Time
	onChange func(Change)
	logger   *slog.Logger
	validate *validator.Validate
	collator *collate.Collator

	students []model.Student
	groups   []model.Group
	rules    []model.Rule
	items    []model.ShopItem
}

// New creates an empty Classroom backed by store. Call Load to read existing
// state.
func New(store Store, opts Options) *Classroom {
	c := &Classroom{
		store:    store,
		newID:    opts.NewID,
		now:      opts.Now,
		onChange: opts.OnChange,
		logger:   opts.Logger,
		validate: newValidator(),
		collator: collate.New(opts.Language, collate.IgnoreCase),
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Load reads all four collections from the store. Rules and shop items that
// were never saved are seeded with defaults and written back.
func (c *Classroom) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var students []model.Student
	if _, err := c.store.Load(ctx, CollectionStudents, &students); err != nil {
		return fmt.Errorf("load students: %w", err)
	}
	var groups []model.Group
	if _, err := c.store.Load(ctx, CollectionGroups, &groups); err != nil {
		return fmt.Errorf("load groups: %w", err)
	}

	var rules []model.Rule
	found, err := c.store.Load(ctx, CollectionRules, &rules)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if !found {
		rules = defaultRules(c.newID)
		if err := c.store.Save(ctx, CollectionRules, rules); err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
		c.logger.Info("seeded default rules", "count", len(rules))
	}

	var items []model.ShopItem
	found, err = c.store.Load(ctx, CollectionShopItems, &items)
	if err != nil {
		return fmt.Errorf("load shop items: %w", err)
	}
	if !found {
		items = defaultShopItems(c.newID)
		if err := c.store.Save(ctx, CollectionShopItems, items); err != nil {
			return fmt.Errorf("seed shop items: %w", err)
		}
		c.logger.Info("seeded default shop items", "count", len(items))
	}

	c.students = normalizeStudents(students, c.newID)
	c.groups = nonNil(groups)
	c.rules = nonNil(rules)
	c.items = nonNil(items)
	return nil
}

type collection struct {
	name  string
	value any
}

// persist writes the given collections. More than one goes through a single
// SaveAll.
func (c *Classroom) persist(ctx context.Context, cols ...collection) error {
	if len(cols) == 1 {
		if err := c.store.Save(ctx, cols[0].name, cols[0].value); err != nil {
			return fmt.Errorf("save %s: %w", cols[0].name, err)
		}
		return nil
	}
	m := make(map[string]any, len(cols))
	for _, col := range cols {
		m[col.name] = col.value
	}
	if err := c.store.SaveAll(ctx, m); err != nil {
		return fmt.Errorf("save collections: %w", err)
	}
	return nil
}

// emit must be called without c.mu held.
func (c *Classroom) emit(entity, action, id string) {
	if c.onChange != nil {
		c.onChange(Change{Entity: entity, Action: action, ID: id})
	}
}

func (c *Classroom) stamp() int64 {
	return c.now().UnixMilli()
}

func (c *Classroom) studentIndex(id string) int {
	for i := range c.students {
		if c.students[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Classroom) groupIndex(id string) int {
	for i := range c.groups {
		if c.groups[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Classroom) ruleIndex(id string) int {
	for i := range c.rules {
		if c.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Classroom) itemIndex(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneStudent returns a copy that shares no slices with s.
func cloneStudent(s model.Student) model.Student {
	s.History = append([]model.PointEvent(nil), s.History...)
	s.Badges = append([]model.Badge(nil), s.Badges...)
	if s.History == nil {
		s.History = []model.PointEvent{}
	}
	if s.Badges == nil {
		s.Badges = []model.Badge{}
	}
	return s
}

func cloneStudents(in []model.Student) []model.Student {
	out := make([]model.Student, len(in))
	for i := range in {
		out[i] = cloneStudent(in[i])
	}
	return out
}

// replaceAt returns a copy of in with element i set to v.
func replaceAt[T any](in []T, i int, v T) []T {
	out := make([]T, len(in))
	copy(out, in)
	out[i] = v
	return out
}

// removeAt returns a copy of in without element i.
func removeAt[T any](in []T, i int) []T {
	out := make([]T, 0, len(in)-1)
	out = append(out, in[:i]...)
	return append(out, in[i+1:]...)
}

func appendCopy[T any](in []T, v T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return append(out, v)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func normalizeStudents(in []model.Student, newID func() string) []model.Student {
	out := make([]model.Student, len(in))
	for i, s := range in {
		if s.ID == "" {
			s.ID = newID()
		}
		s.History = nonNil(s.History)
		s.Badges = nonNil(s.Badges)
		out[i] = s
	}
	return out
}
