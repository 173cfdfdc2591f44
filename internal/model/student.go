package model

import "time"

type EventType string

const (
	EventAdd      EventType = "add"
	EventReduce   EventType = "reduce"
	EventExchange EventType = "exchange"
)

// PointEvent is one immutable entry in a student's ledger. Timestamp is Unix
// milliseconds; zero means the entry carries no time.
type PointEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	Timestamp int64     `json:"timestamp"`
}

// At returns the event time, or the zero time when Timestamp is unset.
func (e PointEvent) At() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp)
}

type Badge struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Student history is ordered newest first.
type Student struct {
	ID        string       `json:"id"`
	Name      string       `json:"name" validate:"required"`
	StudentNo string       `json:"studentNo,omitempty"`
	GroupID   string       `json:"groupId"`
	Points    int          `json:"points" validate:"gte=0,lte=1000000000"`
	History   []PointEvent `json:"history"`
	Badges    []Badge      `json:"badges"`
	Avatar    string       `json:"avatar,omitempty"`
}
