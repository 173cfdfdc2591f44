package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/classpoints/internal/classroom"
)

// maxBodyBytes caps request bodies. Imports carry a whole classroom.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps classroom error kinds to status codes. Anything else is a
// storage or internal failure and is logged.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, classroom.ErrValidation):
		writeMessage(w, http.StatusBadRequest, messageOf(err))
	case errors.Is(err, classroom.ErrNotFound):
		writeMessage(w, http.StatusNotFound, messageOf(err))
	case errors.Is(err, classroom.ErrInsufficientBalance),
		errors.Is(err, classroom.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": messageOf(err),
			"kind":  kindOf(err),
		})
	default:
		logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func messageOf(err error) string {
	var ce *classroom.Error
	if errors.As(err, &ce) {
		return ce.Msg
	}
	return err.Error()
}

func kindOf(err error) string {
	if errors.Is(err, classroom.ErrInsufficientStock) {
		return "insufficient_stock"
	}
	return "insufficient_balance"
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields and trailing
// data. It writes the 400 response itself and reports whether decoding
// succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeMessage(w, http.StatusBadRequest, "invalid JSON: trailing data")
		return false
	}
	return true
}
