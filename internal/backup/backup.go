// Package backup uploads encrypted classroom exports to S3-compatible storage
// and restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/model"
	"github.com/dukerupert/classpoints/internal/store"
)

var (
	ErrDisabled     = errors.New("backups are not configured")
	ErrNotFound     = errors.New("backup not found")
	ErrInProgress   = errors.New("a backup is already running")
	ErrNoPassphrase = errors.New("backup passphrase not set")
)

// s3Client is the subset of the S3 API the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Source is the classroom being backed up.
type Source interface {
	Export() model.Snapshot
	Import(ctx context.Context, data []byte) (*classroom.ImportSummary, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
	// Interval between scheduled backups. Zero disables the schedule.
	Interval time.Duration
	// Retention is how long backups are kept. Zero keeps them forever.
	Retention time.Duration
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	source  Source
	backups *store.BackupStore
	client  s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager. It starts disabled when the S3 configuration
// is incomplete.
func NewManager(cfg Config, source Source, bs *store.BackupStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		source:   source,
		backups:  bs,
		logger:   logger,
		callback: callback,
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start runs scheduled backups until ctx is done or Stop is called. It does
// nothing when backups are disabled or no interval is configured.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.cfg.Interval <= 0 || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	m.logger.Info("backup schedule started", "interval", interval)
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
}

// Stop ends the schedule and waits for a running scheduled backup to finish.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) fail(record *model.Backup, err error) {
	if record != nil {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("record backup failure", "backup", record.ID, "error", uerr)
		}
	}
	m.setStatus(Status{State: StateError, Error: err.Error()})
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow exports the classroom, encrypts the export with the configured
// passphrase and uploads it.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.Lock()
	client := m.client
	cfg := m.cfg
	if client == nil {
		m.mu.Unlock()
		return nil, ErrDisabled
	}
	if cfg.Passphrase == "" {
		m.mu.Unlock()
		return nil, ErrNoPassphrase
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.status.InProgress = true
	m.mu.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	snap := m.source.Export()
	plain, err := json.Marshal(snap)
	if err != nil {
		m.fail(nil, err)
		return nil, fmt.Errorf("encode export: %w", err)
	}

	stamp := m.now().UTC().Format("20060102T150405.000Z")
	filename := fmt.Sprintf("classpoints-%s.json.enc", stamp)
	key := cfg.S3.Prefix + filename

	record, err := m.backups.Create(filename, key, len(snap.Students))
	if err != nil {
		m.fail(nil, err)
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	enc, err := Encrypt(plain, cfg.Passphrase)
	if err != nil {
		m.fail(record, err)
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		m.logger.Warn("mark backup uploading", "backup", record.ID, "error", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		m.fail(record, err)
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	size := int64(len(enc))
	if err := m.backups.UpdateCompleted(record.ID, size); err != nil {
		m.fail(record, err)
		return nil, fmt.Errorf("mark backup completed: %w", err)
	}

	now := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup completed", "backup", record.ID, "key", key, "bytes", size, "students", record.StudentCount)

	record.Status = model.BackupStatusCompleted
	record.SizeBytes = size
	record.CompletedAt = &now
	return record, nil
}

// Restore downloads a backup, decrypts it and imports it into the classroom,
// replacing every collection it contains. An empty passphrase uses the
// configured one.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase string) (*classroom.ImportSummary, error) {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrDisabled
	}
	if passphrase == "" {
		passphrase = cfg.Passphrase
	}
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, ErrNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	enc, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read backup body: %w", err)
	}
	plain, err := Decrypt(enc, passphrase)
	if err != nil {
		return nil, err
	}

	sum, err := m.source.Import(ctx, plain)
	if err != nil {
		return nil, fmt.Errorf("import backup %d: %w", backupID, err)
	}
	m.logger.Info("backup restored", "backup", backupID, "key", record.ObjectKey)
	return sum, nil
}

// Cleanup deletes backups older than the retention period, both the records
// and their objects.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil || cfg.Retention <= 0 {
		return nil
	}

	keys, err := m.backups.DeleteOlderThan(m.now().Add(-cfg.Retention))
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}
	return nil
}

// List returns the most recent backups, newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}
