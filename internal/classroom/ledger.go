package classroom

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/classpoints/internal/model"
)

// MaxBalance caps a student's points and any single adjustment. Model
// validation tags use the same literal.
const MaxBalance = 1_000_000_000

type adjustment struct {
	Amount int             `json:"amount" validate:"gte=1,lte=1000000000"`
	Reason string          `json:"reason" validate:"required"`
	Type   model.EventType `json:"type" validate:"oneof=add reduce"`
}

// AddPoints credits amount to a student and records an add event.
func (c *Classroom) AddPoints(ctx context.Context, studentID string, amount int, reason string) (*model.Student, error) {
	return c.adjust(ctx, "add points", studentID, adjustment{Amount: amount, Reason: reason, Type: model.EventAdd})
}

// ReducePoints debits amount from a student, never below zero, and records a
// reduce event. The event keeps the requested amount even when the balance
// dropped by less.
func (c *Classroom) ReducePoints(ctx context.Context, studentID string, amount int, reason string) (*model.Student, error) {
	return c.adjust(ctx, "reduce points", studentID, adjustment{Amount: amount, Reason: reason, Type: model.EventReduce})
}

func (c *Classroom) adjust(ctx context.Context, op, studentID string, adj adjustment) (*model.Student, error) {
	adj.Reason = strings.TrimSpace(adj.Reason)
	if err := c.check(op, adj); err != nil {
		return nil, err
	}

	c.mu.Lock()
	i := c.studentIndex(studentID)
	if i < 0 {
		c.mu.Unlock()
		return nil, notFoundErr(op, "student", studentID)
	}

	s := c.students[i]
	switch adj.Type {
	case model.EventAdd:
		if s.Points > MaxBalance-adj.Amount {
			c.mu.Unlock()
			return nil, validationErr(op, "balance would exceed %d", MaxBalance)
		}
		s.Points += adj.Amount
	case model.EventReduce:
		s.Points = max(0, s.Points-adj.Amount)
	}
	s.History = prependEvent(s.History, model.PointEvent{
		ID:        c.newID(),
		Type:      adj.Type,
		Points:    adj.Amount,
		Reason:    adj.Reason,
		Timestamp: c.stamp(),
	})

	next := replaceAt(c.students, i, s)
	if err := c.persist(ctx, collection{CollectionStudents, next}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.students = next
	c.mu.Unlock()

	c.logger.Debug("points adjusted", "student", studentID, "type", adj.Type, "amount", adj.Amount, "balance", s.Points)
	c.emit("student", "points_"+string(adj.Type), studentID)
	out := cloneStudent(s)
	return &out, nil
}

func prependEvent(history []model.PointEvent, ev model.PointEvent) []model.PointEvent {
	out := make([]model.PointEvent, 0, len(history)+1)
	out = append(out, ev)
	return append(out, history...)
}

// BatchFailure records why one id in a batch was not adjusted.
type BatchFailure struct {
	StudentID string `json:"studentId"`
	Error     string `json:"error"`
}

// BatchResult reports the outcome of BatchAdjust per student.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// BatchAdjust applies the same add or reduce to every listed student. Each id
// is an independent operation: failures are recorded in the result and never
// undo the others. An error is returned only when the shared amount, reason
// or type is invalid.
func (c *Classroom) BatchAdjust(ctx context.Context, studentIDs []string, amount int, reason string, typ model.EventType) (*BatchResult, error) {
	const op = "batch adjust"
	adj := adjustment{Amount: amount, Reason: strings.TrimSpace(reason), Type: typ}
	if err := c.check(op, adj); err != nil {
		return nil, err
	}

	res := &BatchResult{Succeeded: []string{}, Failed: []BatchFailure{}}
	for _, id := range studentIDs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, BatchFailure{StudentID: id, Error: err.Error()})
			continue
		}
		if _, err := c.adjust(ctx, op, id, adj); err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.logger.Warn("batch adjust failed", "student", id, "error", err)
			}
			res.Failed = append(res.Failed, BatchFailure{StudentID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}
