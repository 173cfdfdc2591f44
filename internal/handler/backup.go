package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/classpoints/internal/backup"
	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/model"
)

// Backups is the backup manager as seen by the API.
type Backups interface {
	Status() backup.Status
	RunNow(ctx context.Context) (*model.Backup, error)
	List(limit int) ([]model.Backup, error)
	Restore(ctx context.Context, backupID int64, passphrase string) (*classroom.ImportSummary, error)
}

type BackupHandler struct {
	backups Backups
	logger  *slog.Logger
}

func NewBackupHandler(b Backups, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{backups: b, logger: logger}
}

func (h *BackupHandler) writeBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrDisabled), errors.Is(err, backup.ErrNoPassphrase):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backup.ErrInProgress):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, backup.ErrDecrypt):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, h.logger, err)
	}
}

func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	rec, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type backupListResponse struct {
	Status  backup.Status  `json:"status"`
	Backups []model.Backup `json:"backups"`
}

// List returns the manager status and recent backups, at most ?limit= (20).
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeMessage(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	list, err := h.backups.List(limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, backupListResponse{Status: h.backups.Status(), Backups: list})
}

type restoreRequest struct {
	Passphrase string `json:"passphrase"`
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req restoreRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sum, err := h.backups.Restore(r.Context(), id, req.Passphrase)
	if err != nil {
		h.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
