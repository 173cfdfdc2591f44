package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classpoints/internal/classroom"
)

type GroupHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewGroupHandler(c *classroom.Classroom, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{classroom: c, logger: logger}
}

type groupRequest struct {
	Name string `json:"name"`
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.ListGroups())
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.classroom.GetGroup(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.classroom.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.classroom.RenameGroup(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.DeleteGroup(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) Score(w http.ResponseWriter, r *http.Request) {
	score, err := h.classroom.GroupScore(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.classroom.GroupMembers(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.AddMember(r.Context(), r.PathValue("id"), r.PathValue("studentId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("studentId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
