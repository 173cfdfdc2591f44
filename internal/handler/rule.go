package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classpoints/internal/classroom"
)

type RuleHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewRuleHandler(c *classroom.Classroom, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{classroom: c, logger: logger}
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.ListRules())
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.classroom.GetRule(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req classroom.RuleInput
	if !decodeJSON(w, r, &req) {
		return
	}
	rule, err := h.classroom.CreateRule(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req classroom.RuleInput
	if !decodeJSON(w, r, &req) {
		return
	}
	rule, err := h.classroom.UpdateRule(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
