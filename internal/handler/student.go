package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/model"
)

type StudentHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewStudentHandler(c *classroom.Classroom, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{classroom: c, logger: logger}
}

// List returns every student, or those matching ?q= by name or student number.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, h.classroom.SearchStudents(q))
		return
	}
	writeJSON(w, http.StatusOK, h.classroom.ListStudents())
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.classroom.GetStudent(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req classroom.StudentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.classroom.CreateStudent(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req classroom.StudentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.classroom.UpdateStudent(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.DeleteStudent(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *StudentHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.classroom.DeleteStudents(r.Context(), req.IDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

type pointsRequest struct {
	Type   model.EventType `json:"type"`
	Amount int             `json:"amount"`
	Reason string          `json:"reason"`
	// RuleID prefills whichever of type, amount and reason are unset.
	RuleID string `json:"ruleId"`
}

// fill applies the referenced rule's suggestion to unset fields.
func (req *pointsRequest) fill(c *classroom.Classroom) error {
	if req.RuleID == "" {
		return nil
	}
	rule, err := c.GetRule(req.RuleID)
	if err != nil {
		return err
	}
	amount, reason, typ := classroom.Suggest(*rule)
	if req.Type == "" {
		req.Type = typ
	}
	if req.Amount == 0 {
		req.Amount = amount
	}
	if req.Reason == "" {
		req.Reason = reason
	}
	return nil
}

// AdjustPoints adds or reduces one student's points.
func (h *StudentHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.fill(h.classroom); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	var (
		s   *model.Student
		err error
	)
	switch req.Type {
	case model.EventAdd:
		s, err = h.classroom.AddPoints(r.Context(), id, req.Amount, req.Reason)
	case model.EventReduce:
		s, err = h.classroom.ReducePoints(r.Context(), id, req.Amount, req.Reason)
	default:
		writeMessage(w, http.StatusBadRequest, "type must be add or reduce")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type batchPointsRequest struct {
	pointsRequest
	StudentIDs []string `json:"studentIds"`
}

// BatchPoints applies the same adjustment to several students. Per-student
// failures are reported in the body, not as an error status.
func (h *StudentHandler) BatchPoints(w http.ResponseWriter, r *http.Request) {
	var req batchPointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.fill(h.classroom); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.classroom.BatchAdjust(r.Context(), req.StudentIDs, req.Amount, req.Reason, req.Type)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
