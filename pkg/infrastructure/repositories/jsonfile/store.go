package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
)

const (
	defaultAttempts       = 3
	defaultInitialBackoff = 50 * time.Millisecond
)

// Store keeps the snapshot in a single JSON document on disk
type Store struct {
	path           string
	logger         *zap.Logger
	attempts       uint
	initialBackoff time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetry sets how many times a write is attempted and the first backoff
// interval between attempts
func WithRetry(attempts uint, initialBackoff time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if initialBackoff > 0 {
			s.initialBackoff = initialBackoff
		}
	}
}

// NewStore creates a store backed by the file at path
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:           path,
		logger:         zap.NewNop(),
		attempts:       defaultAttempts,
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*Store)(nil)

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing or corrupt file yields an empty
// snapshot and ErrDataUnavailable.
func (s *Store) Load(ctx context.Context) (*entities.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("inventory data unavailable", zap.String("path", s.path), zap.Error(err))
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "read %s: %v", s.path, err)
	}

	var snapshot entities.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Error("inventory data corrupt", zap.String("path", s.path), zap.Error(err))
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "decode %s: %v", s.path, err)
	}
	snapshot.Normalize()

	return &snapshot, nil
}

// Persist writes the whole document to a temporary file and renames it over
// the target, retrying transient failures with exponential backoff
func (s *Store) Persist(ctx context.Context, snapshot *entities.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return errors.Wrapf(entities.ErrPersistFailure, "encode snapshot: %v", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialBackoff

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.writeAtomic(data)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("retrying inventory write",
				zap.String("path", s.path),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		s.logger.Error("inventory write failed", zap.String("path", s.path), zap.Error(err))
		return errors.Wrapf(entities.ErrPersistFailure, "write %s: %v", s.path, err)
	}

	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
