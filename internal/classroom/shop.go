package classroom

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/classpoints/internal/model"
)

type ShopItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsCost  int    `json:"pointsCost"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"imageUrl"`
}

func (in ShopItemInput) item(id string) model.ShopItem {
	return model.ShopItem{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		PointsCost:  in.PointsCost,
		Stock:       in.Stock,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
}

func (c *Classroom) ListShopItems() []model.ShopItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Classroom) GetShopItem(id string) (*model.ShopItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.itemIndex(id)
	if i < 0 {
		return nil, notFoundErr("get shop item", "shop item", id)
	}
	it := c.items[i]
	return &it, nil
}

func (c *Classroom) CreateShopItem(ctx context.Context, in ShopItemInput) (*model.ShopItem, error) {
	const op = "create shop item"
	it := in.item("")
	if err := c.check(op, it); err != nil {
		return nil, err
	}

	c.mu.Lock()
	it.ID = c.newID()
	next := appendCopy(c.items, it)
	if err := c.persist(ctx, collection{CollectionShopItems, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.items = next
	c.mu.Unlock()

	c.emit("shop_item", "created", it.ID)
	return &it, nil
}

func (c *Classroom) UpdateShopItem(ctx context.Context, id string, in ShopItemInput) (*model.ShopItem, error) {
	const op = "update shop item"
	it := in.item(id)
	if err := c.check(op, it); err != nil {
		return nil, err
	}

	c.mu.Lock()
	i := c.itemIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "shop item", id)
	}
	next := replaceAt(c.items, i, it)
	if err := c.persist(ctx, collection{CollectionShopItems, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.items = next
	c.mu.Unlock()

	c.emit("shop_item", "updated", id)
	return &it, nil
}

func (c *Classroom) DeleteShopItem(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.itemIndex(id)
	if i < 0 {
		c.mu.Unlock()
		return notFoundErr("delete shop item", "shop item", id)
	}
	next := removeAt(c.items, i)
	if err := c.persist(ctx, collection{CollectionShopItems, next}); err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = next
	c.mu.Unlock()

	c.emit("shop_item", "deleted", id)
	return nil
}

// EligibleStudents lists the students whose balance covers an item's cost,
// ordered by name.
func (c *Classroom) EligibleStudents(itemID string) ([]model.Student, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.itemIndex(itemID)
	if i < 0 {
		return nil, notFoundErr("eligible students", "shop item", itemID)
	}
	cost := c.items[i].PointsCost
	out := []model.Student{}
	for _, s := range c.students {
		if s.Points >= cost {
			out = append(out, cloneStudent(s))
		}
	}
	c.sortByName(out)
	return out, nil
}

// ExchangeResult is the state of both sides after a successful exchange.
type ExchangeResult struct {
	Student model.Student    `json:"student"`
	Item    model.ShopItem   `json:"item"`
	Event   model.PointEvent `json:"event"`
}

// Exchange redeems one unit of an item for a student. The balance debit, the
// stock decrement and the exchange event are committed together or not at all.
func (c *Classroom) Exchange(ctx context.Context, itemID, studentID string) (*ExchangeResult, error) {
	const op = "exchange"

	c.mu.Lock()
	ii := c.itemIndex(itemID)
	if ii < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "shop item", itemID)
	}
	si := c.studentIndex(studentID)
	if si < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "student", studentID)
	}

	it := c.items[ii]
	s := c.students[si]
	if it.Stock <= 0 {
		c.mu.Unlock()
		return nil, &Error{Op: op, Kind: ErrInsufficientStock, Msg: fmt.Sprintf("%q is out of stock", it.Name)}
	}
	if s.Points < it.PointsCost {
		c.mu.Unlock()
		return nil, &Error{Op: op, Kind: ErrInsufficientBalance,
			Msg: fmt.Sprintf("%s has %d points, %q costs %d", s.Name, s.Points, it.Name, it.PointsCost)}
	}

	ev := model.PointEvent{
		ID:        c.newID(),
		Type:      model.EventExchange,
		Points:    -it.PointsCost,
		Reason:    "exchange: " + it.Name,
		Timestamp: c.stamp(),
	}
	s.Points -= it.PointsCost
	s.History = prependEvent(s.History, ev)
	it.Stock--

	nextStudents := replaceAt(c.students, si, s)
	nextItems := replaceAt(c.items, ii, it)
	if err := c.persist(ctx,
		collection{CollectionStudents, nextStudents},
		collection{CollectionShopItems, nextItems},
	); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.students = nextStudents
	c.items = nextItems
	c.mu.Unlock()

	c.logger.Debug("item exchanged", "item", itemID, "student", studentID, "cost", it.PointsCost, "stock", it.Stock)
	c.emit("student", "points_exchange", studentID)
	c.emit("shop_item", "updated", itemID)
	return &ExchangeResult{Student: cloneStudent(s), Item: it, Event: ev}, nil
}
