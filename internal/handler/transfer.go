package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/model"
)

type TransferHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewTransferHandler(c *classroom.Classroom, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{classroom: c, logger: logger}
}

// Export downloads every collection as one JSON document.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("classpoints-%s.json", time.Now().Format("20060102"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, h.classroom.Export())
}

// Import accepts an exported document or a bare student array.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "import too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "read body failed")
		return
	}
	sum, err := h.classroom.Import(r.Context(), data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ReplaceCollection overwrites one collection with the JSON array in the body.
func (h *TransferHandler) ReplaceCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)

	var err error
	switch name {
	case classroom.CollectionStudents:
		var v []model.Student
		if err = json.NewDecoder(body).Decode(&v); err == nil {
			err = h.classroom.ReplaceStudents(r.Context(), v)
		}
	case classroom.CollectionGroups:
		var v []model.Group
		if err = json.NewDecoder(body).Decode(&v); err == nil {
			err = h.classroom.ReplaceGroups(r.Context(), v)
		}
	case classroom.CollectionRules:
		var v []model.Rule
		if err = json.NewDecoder(body).Decode(&v); err == nil {
			err = h.classroom.ReplaceRules(r.Context(), v)
		}
	case classroom.CollectionShopItems:
		var v []model.ShopItem
		if err = json.NewDecoder(body).Decode(&v); err == nil {
			err = h.classroom.ReplaceShopItems(r.Context(), v)
		}
	default:
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "collection too large")
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	default:
		writeError(w, h.logger, err)
	}
}
