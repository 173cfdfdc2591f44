package classroom

import (
	"context"
	"slices"
	"strings"

	"github.com/dukerupert/classpoints/internal/model"
)

// RuleInput holds the editable fields of a rule. Points is signed: positive
// rules suggest an add, negative rules a reduce.
type RuleInput struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

func (c *Classroom) ListRules() []model.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rules)
}

func (c *Classroom) GetRule(id string) (*model.Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.ruleIndex(id)
	if i < 0 {
		return nil, notFoundErr("get rule", "rule", id)
	}
	r := c.rules[i]
	return &r, nil
}

func (c *Classroom) CreateRule(ctx context.Context, in RuleInput) (*model.Rule, error) {
	const op = "create rule"
	r := model.Rule{
		Name:        strings.TrimSpace(in.Name),
		Points:      in.Points,
		Description: strings.TrimSpace(in.Description),
	}
	if err := c.check(op, r); err != nil {
		return nil, err
	}

	c.mu.Lock()
	r.ID = c.newID()
	next := appendCopy(c.rules, r)
	if err := c.persist(ctx, collection{CollectionRules, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.rules = next
	c.mu.Unlock()

	c.emit("rule", "created", r.ID)
	return &r, nil
}

func (c *Classroom) UpdateRule(ctx context.Context, id string, in RuleInput) (*model.Rule, error) {
	const op = "update rule"
	r := model.Rule{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Points:      in.Points,
		Description: strings.TrimSpace(in.Description),
	}
	if err := c.check(op, r); err != nil {
		return nil, err
	}

	c.mu.Lock()
	i := c.ruleIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "rule", id)
	}
	next := replaceAt(c.rules, i, r)
	if err := c.persist(ctx, collection{CollectionRules, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.rules = next
	c.mu.Unlock()

	c.emit("rule", "updated", id)
	return &r, nil
}

func (c *Classroom) DeleteRule(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.ruleIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return notFoundErr("delete rule", "rule", id)
	}
	next := removeAt(c.rules, i)
	if err := c.persist(ctx, collection{CollectionRules, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.rules = next
	c.mu.Unlock()

	c.emit("rule", "deleted", id)
	return nil
}

// Suggest returns the ledger operation a rule prefills: its magnitude, its
// name as the reason, and add or reduce by sign. Rules are never linked to the
// events recorded from them.
func Suggest(r model.Rule) (amount int, reason string, typ model.EventType) {
	if r.Points < 0 {
		return -r.Points, r.Name, model.EventReduce
	}
	return r.Points, r.Name, model.EventAdd
}
