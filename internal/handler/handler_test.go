package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/classpoints/internal/backup"
	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/database"
	"github.com/dukerupert/classpoints/internal/model"
	"github.com/dukerupert/classpoints/internal/store"
)

type harness struct {
	c       *classroom.Classroom
	backups *fakeBackups
	mux     *http.ServeMux
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := classroom.New(store.NewCollectionStore(db), classroom.Options{Logger: logger})
	require.NoError(t, c.Load(context.Background()))

	h := &harness{c: c, backups: &fakeBackups{}, mux: http.NewServeMux()}
	students := NewStudentHandler(c, logger)
	groups := NewGroupHandler(c, logger)
	rules := NewRuleHandler(c, logger)
	shop := NewShopHandler(c, logger)
	rankings := NewRankingHandler(c, logger)
	transfer := NewTransferHandler(c, logger)
	bh := NewBackupHandler(h.backups, logger)

	h.mux.HandleFunc("GET /api/students", students.List)
	h.mux.HandleFunc("POST /api/students", students.Create)
	h.mux.HandleFunc("GET /api/students/{id}", students.Get)
	h.mux.HandleFunc("PUT /api/students/{id}", students.Update)
	h.mux.HandleFunc("DELETE /api/students/{id}", students.Delete)
	h.mux.HandleFunc("POST /api/students/batch-delete", students.BatchDelete)
	h.mux.HandleFunc("POST /api/students/{id}/points", students.AdjustPoints)
	h.mux.HandleFunc("POST /api/students/points/batch", students.BatchPoints)
	h.mux.HandleFunc("POST /api/groups", groups.Create)
	h.mux.HandleFunc("GET /api/groups/{id}/score", groups.Score)
	h.mux.HandleFunc("POST /api/groups/{id}/members/{studentId}", groups.AddMember)
	h.mux.HandleFunc("POST /api/rules", rules.Create)
	h.mux.HandleFunc("GET /api/rules/{id}", rules.Get)
	h.mux.HandleFunc("POST /api/shop/items", shop.Create)
	h.mux.HandleFunc("POST /api/shop/items/{id}/exchange", shop.Exchange)
	h.mux.HandleFunc("GET /api/shop/items/{id}/eligible", shop.Eligible)
	h.mux.HandleFunc("GET /api/rankings/total", rankings.Total)
	h.mux.HandleFunc("GET /api/rankings/progress", rankings.Progress)
	h.mux.HandleFunc("GET /api/statistics", rankings.Stats)
	h.mux.HandleFunc("GET /api/export", transfer.Export)
	h.mux.HandleFunc("POST /api/import", transfer.Import)
	h.mux.HandleFunc("PUT /api/collections/{name}", transfer.ReplaceCollection)
	h.mux.HandleFunc("GET /api/backups", bh.List)
	h.mux.HandleFunc("POST /api/backups", bh.Create)
	h.mux.HandleFunc("POST /api/backups/{id}/restore", bh.Restore)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) student(t *testing.T, name string, points int) model.Student {
	t.Helper()
	s, err := h.c.CreateStudent(context.Background(), classroom.StudentInput{Name: name})
	require.NoError(t, err)
	if points > 0 {
		s, err = h.c.AddPoints(context.Background(), s.ID, points, "seed")
		require.NoError(t, err)
	}
	return *s
}

func TestStudentEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/students", `{"name":"Ana","studentNo":"S01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ana := decode[model.Student](t, rec)
	assert.Equal(t, "Ana", ana.Name)

	rec = h.do(t, "POST", "/api/students", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "name")

	rec = h.do(t, "POST", "/api/students", `{"name":"Ben","points":50}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = h.do(t, "GET", "/api/students/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, "PUT", "/api/students/"+ana.ID, `{"name":"Anna"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Anna", decode[model.Student](t, rec).Name)

	h.student(t, "Ben", 0)
	rec = h.do(t, "GET", "/api/students?q=s01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]model.Student](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, ana.ID, found[0].ID)

	rec = h.do(t, "POST", "/api/students/batch-delete", `{"ids":["`+ana.ID+`","ghost"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rec)["deleted"])

	rec = h.do(t, "DELETE", "/api/students/"+ana.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdjustPoints(t *testing.T) {
	h := newHarness(t)
	s := h.student(t, "Ana", 10)
	path := "/api/students/" + s.ID + "/points"

	rec := h.do(t, "POST", path, `{"type":"add","amount":5,"reason":"Quiz"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Student](t, rec)
	assert.Equal(t, 15, got.Points)
	assert.Equal(t, "Quiz", got.History[0].Reason)

	rec = h.do(t, "POST", path, `{"type":"bonus","amount":5,"reason":"Quiz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "POST", path, `{"type":"add","amount":0,"reason":"Quiz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "POST", path, `{"type":"add","amount":9223372036854775807,"reason":"Quiz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	after, err := h.c.GetStudent(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, after.Points)

	rec = h.do(t, "POST", "/api/students/ghost/points", `{"type":"add","amount":1,"reason":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdjustPointsFromRule(t *testing.T) {
	h := newHarness(t)
	s := h.student(t, "Ana", 10)
	rule, err := h.c.CreateRule(context.Background(), classroom.RuleInput{Name: "Late", Points: -3})
	require.NoError(t, err)

	rec := h.do(t, "POST", "/api/students/"+s.ID+"/points", `{"ruleId":"`+rule.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Student](t, rec)
	assert.Equal(t, 7, got.Points)
	assert.Equal(t, model.EventReduce, got.History[0].Type)
	assert.Equal(t, "Late", got.History[0].Reason)

	// Explicit fields win over the rule.
	rec = h.do(t, "POST", "/api/students/"+s.ID+"/points", `{"ruleId":"`+rule.ID+`","amount":1,"reason":"Slightly late"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[model.Student](t, rec)
	assert.Equal(t, 6, got.Points)
	assert.Equal(t, "Slightly late", got.History[0].Reason)

	rec = h.do(t, "POST", "/api/students/"+s.ID+"/points", `{"ruleId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchPoints(t *testing.T) {
	h := newHarness(t)
	a := h.student(t, "Ana", 0)
	b := h.student(t, "Ben", 0)

	body := `{"studentIds":["` + a.ID + `","ghost","` + b.ID + `"],"type":"add","amount":2,"reason":"Team win"}`
	rec := h.do(t, "POST", "/api/students/points/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[classroom.BatchResult](t, rec)
	assert.Equal(t, []string{a.ID, b.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "ghost", res.Failed[0].StudentID)

	got, err := h.c.GetStudent(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Points)

	rec = h.do(t, "POST", "/api/students/points/batch", `{"studentIds":["`+a.ID+`"],"type":"add","amount":2,"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupEndpoints(t *testing.T) {
	h := newHarness(t)
	s := h.student(t, "Ana", 9)

	rec := h.do(t, "POST", "/api/groups", `{"name":"Red"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	g := decode[model.Group](t, rec)

	rec = h.do(t, "POST", "/api/groups/"+g.ID+"/members/"+s.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, "GET", "/api/groups/"+g.ID+"/score", "")
	require.Equal(t, http.StatusOK, rec.Code)
	score := decode[classroom.GroupScore](t, rec)
	assert.Equal(t, 9, score.TotalPoints)
	assert.Equal(t, 1, score.MemberCount)

	rec = h.do(t, "GET", "/api/groups/ghost/score", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExchangeEndpoint(t *testing.T) {
	h := newHarness(t)
	rich := h.student(t, "Ana", 30)
	poor := h.student(t, "Ben", 2)

	rec := h.do(t, "POST", "/api/shop/items", `{"name":"Sticker","pointsCost":10,"stock":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[model.ShopItem](t, rec)

	rec = h.do(t, "GET", "/api/shop/items/"+item.ID+"/eligible", "")
	require.Equal(t, http.StatusOK, rec.Code)
	eligible := decode[[]model.Student](t, rec)
	require.Len(t, eligible, 1)
	assert.Equal(t, rich.ID, eligible[0].ID)

	rec = h.do(t, "POST", "/api/shop/items/"+item.ID+"/exchange", `{"studentId":"`+poor.ID+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_balance", decode[map[string]string](t, rec)["kind"])

	rec = h.do(t, "POST", "/api/shop/items/"+item.ID+"/exchange", `{"studentId":"`+rich.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[classroom.ExchangeResult](t, rec)
	assert.Equal(t, 20, res.Student.Points)
	assert.Equal(t, 0, res.Item.Stock)
	assert.Equal(t, model.EventExchange, res.Event.Type)

	rec = h.do(t, "POST", "/api/shop/items/"+item.ID+"/exchange", `{"studentId":"`+rich.ID+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode[map[string]string](t, rec)["kind"])

	rec = h.do(t, "POST", "/api/shop/items/ghost/exchange", `{"studentId":"`+rich.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRankingEndpoints(t *testing.T) {
	h := newHarness(t)
	h.student(t, "Ana", 5)
	h.student(t, "Ben", 8)

	rec := h.do(t, "GET", "/api/rankings/total", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decode[[]classroom.RankedStudent](t, rec)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Ben", ranked[0].Name)
	assert.Equal(t, 1, ranked[0].Rank)

	rec = h.do(t, "GET", "/api/rankings/progress?days=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[[]classroom.ProgressEntry](t, rec)
	require.Len(t, progress, 2)
	assert.Equal(t, 8, progress[0].Progress)

	for _, q := range []string{"0", "367", "week"} {
		rec = h.do(t, "GET", "/api/rankings/progress?days="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "days=%s", q)
	}

	rec = h.do(t, "GET", "/api/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[classroom.Stats](t, rec)
	assert.Equal(t, 13, stats.TotalPoints)
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	h.student(t, "Ana", 4)

	rec := h.do(t, "GET", "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	exported := rec.Body.String()

	other := newHarness(t)
	rec = other.do(t, "POST", "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[classroom.ImportSummary](t, rec)
	require.NotNil(t, sum.Students)
	assert.Equal(t, 1, *sum.Students)
	assert.Equal(t, h.c.Export(), other.c.Export())

	rec = other.do(t, "POST", "/api/import", `"nope"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceCollection(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "PUT", "/api/collections/pointsRules", `[{"name":"Bonus","points":2}]`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	require.Len(t, h.c.ListRules(), 1)

	rec = h.do(t, "PUT", "/api/collections/pointsRules", `[{"name":"Zero","points":0}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "PUT", "/api/collections/shopGoods", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "PUT", "/api/collections/parents", `[]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizedBodiesRejected(t *testing.T) {
	h := newHarness(t)
	huge := "[" + strings.Repeat(" ", maxImportBytes) + "]"

	rec := h.do(t, "PUT", "/api/collections/groups", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = h.do(t, "POST", "/api/import", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

type fakeBackups struct {
	runErr     error
	restoreErr error
	records    []model.Backup
	passphrase string
}

func (f *fakeBackups) Status() backup.Status { return backup.Status{State: backup.StateIdle} }

func (f *fakeBackups) RunNow(context.Context) (*model.Backup, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	rec := model.Backup{ID: int64(len(f.records) + 1), Status: model.BackupStatusCompleted}
	f.records = append(f.records, rec)
	return &rec, nil
}

func (f *fakeBackups) List(limit int) ([]model.Backup, error) {
	return f.records, nil
}

func (f *fakeBackups) Restore(_ context.Context, id int64, passphrase string) (*classroom.ImportSummary, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	f.passphrase = passphrase
	n := 3
	return &classroom.ImportSummary{Students: &n}, nil
}

func TestBackupEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/api/backups", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, "GET", "/api/backups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[backupListResponse](t, rec)
	assert.Equal(t, backup.StateIdle, list.Status.State)
	assert.Len(t, list.Backups, 1)

	rec = h.do(t, "GET", "/api/backups?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, "POST", "/api/backups/1/restore", `{"passphrase":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", h.backups.passphrase)

	rec = h.do(t, "POST", "/api/backups/1/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.backups.passphrase)

	rec = h.do(t, "POST", "/api/backups/abc/restore", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tests := []struct {
		err  error
		want int
	}{
		{backup.ErrDisabled, http.StatusServiceUnavailable},
		{backup.ErrNoPassphrase, http.StatusServiceUnavailable},
		{backup.ErrNotFound, http.StatusNotFound},
		{backup.ErrDecrypt, http.StatusBadRequest},
		{errors.New("s3 down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h.backups.restoreErr = tt.err
		rec = h.do(t, "POST", "/api/backups/1/restore", "")
		assert.Equal(t, tt.want, rec.Code, "restore error %v", tt.err)
	}

	h.backups.runErr = backup.ErrInProgress
	rec = h.do(t, "POST", "/api/backups", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
