package classroom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/classpoints/internal/model"
)

func TestTotalRanking(t *testing.T) {
	students := []model.Student{
		{ID: "a", Name: "A", Points: 5},
		{ID: "b", Name: "B", Points: 10},
		{ID: "c", Name: "C", Points: 8},
		{ID: "d", Name: "D", Points: 10},
	}

	ranked := TotalRanking(students)

	var ids []string
	var ranks []int
	for _, r := range ranked {
		ids = append(ids, r.ID)
		ranks = append(ranks, r.Rank)
		assert.Zero(t, r.RankChange)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
	assert.Equal(t, []int{1, 1, 3, 4}, ranks)
	// Input is not reordered.
	assert.Equal(t, "a", students[0].ID)
}

func TestTotalRankingEmpty(t *testing.T) {
	assert.Empty(t, TotalRanking(nil))
}

func TestProgressValue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	at := func(ago time.Duration) int64 { return now.Add(-ago).UnixMilli() }

	s := model.Student{History: []model.PointEvent{
		{Type: model.EventExchange, Points: -3, Timestamp: at(day)},
		{Type: model.EventAdd, Points: 5, Timestamp: at(3 * day)},
		{Type: model.EventAdd, Points: 100, Timestamp: at(8 * day)},
		{Type: model.EventAdd, Points: 50},
	}}
	assert.Equal(t, 5, ProgressValue(s, now, DefaultProgressWindow))

	s.History = append(s.History, model.PointEvent{Type: model.EventReduce, Points: 2, Timestamp: at(time.Hour)})
	assert.Equal(t, 3, ProgressValue(s, now, DefaultProgressWindow))

	// Window bounds are inclusive.
	edge := model.Student{History: []model.PointEvent{{Type: model.EventAdd, Points: 1, Timestamp: at(7 * day)}}}
	assert.Equal(t, 1, ProgressValue(edge, now, DefaultProgressWindow))
}

func TestProgressRanking(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour).UnixMilli()
	ev := func(typ model.EventType, pts int) model.PointEvent {
		return model.PointEvent{Type: typ, Points: pts, Timestamp: recent}
	}

	students := []model.Student{
		{ID: "zero", History: []model.PointEvent{ev(model.EventAdd, 2), ev(model.EventReduce, 2)}},
		{ID: "low", History: []model.PointEvent{ev(model.EventAdd, 2)}},
		{ID: "neg", History: []model.PointEvent{ev(model.EventReduce, 4)}},
		{ID: "high", History: []model.PointEvent{ev(model.EventAdd, 9)}},
		{ID: "tie", History: []model.PointEvent{ev(model.EventAdd, 2)}},
		{ID: "none"},
	}

	entries := ProgressRanking(students, now, DefaultProgressWindow)
	require.Len(t, entries, 3)
	assert.Equal(t, "high", entries[0].Student.ID)
	assert.Equal(t, 9, entries[0].Progress)
	assert.Equal(t, "low", entries[1].Student.ID)
	assert.Equal(t, "tie", entries[2].Student.ID)
	// Ties are not merged.
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
}

func TestClassroomProgressRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := 24 * time.Hour

	s := f.student(t, "Ana", 0)
	f.now = f.now.Add(-3 * day)
	_, err := f.c.AddPoints(ctx, s.ID, 5, "Homework on time")
	require.NoError(t, err)
	f.now = f.now.Add(2 * day)
	_, err = f.c.Exchange(ctx, f.c.ListShopItems()[1].ID, s.ID) // Sticker pack, cost 10
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	f.now = f.now.Add(day)

	entries := f.c.ProgressRanking(0)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Progress)

	assert.Empty(t, f.c.ProgressRanking(time.Hour))
}

func TestClassroomTotalRanking(t *testing.T) {
	f := newFixture(t)
	f.student(t, "Ana", 10)
	f.student(t, "Ben", 10)
	f.student(t, "Cleo", 8)
	f.student(t, "Dara", 5)

	var ranks []int
	for _, r := range f.c.TotalRanking() {
		ranks = append(ranks, r.Rank)
	}
	assert.Equal(t, []int{1, 1, 3, 4}, ranks)
}
