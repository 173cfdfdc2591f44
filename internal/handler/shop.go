package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classpoints/internal/classroom"
)

type ShopHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewShopHandler(c *classroom.Classroom, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{classroom: c, logger: logger}
}

func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.ListShopItems())
}

func (h *ShopHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.classroom.GetShopItem(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req classroom.ShopItemInput
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.classroom.CreateShopItem(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShopHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req classroom.ShopItemInput
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.classroom.UpdateShopItem(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ShopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom.DeleteShopItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exchangeRequest struct {
	StudentID string `json:"studentId"`
}

func (h *ShopHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.classroom.Exchange(r.Context(), r.PathValue("id"), req.StudentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ShopHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	students, err := h.classroom.EligibleStudents(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}
