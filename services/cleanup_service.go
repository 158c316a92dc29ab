package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/metrics"
	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/repositories"
	"github.com/bbasli/bdrive/storage"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const sweepLockKey = "bdrive:sweep:lock"

// SweepResult counts one sweep run. Spared files were listed as expired but
// restored or re-trashed before the sweep reached them.
type SweepResult struct {
	Scanned int  `json:"scanned"`
	Removed int  `json:"removed"`
	Spared  int  `json:"spared"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}

type CleanupService interface {
	RemoveDeletableFiles(ctx context.Context) (SweepResult, error)
}

type cleanupService struct {
	txManager TxManager
	files     repositories.FileRepository
	favorites repositories.FavoriteRepository
	locks     repositories.LockRepository
	store     storage.Store
	now       func() time.Time
}

func NewCleanupService(
	txManager TxManager,
	files repositories.FileRepository,
	favorites repositories.FavoriteRepository,
	locks repositories.LockRepository,
	store storage.Store,
) CleanupService {
	return &cleanupService{
		txManager: txManager,
		files:     files,
		favorites: favorites,
		locks:     locks,
		store:     store,
		now:       time.Now,
	}
}

var (
	defaultCleanupMu      sync.RWMutex
	defaultCleanupService CleanupService
)

func SetCleanupService(svc CleanupService) {
	defaultCleanupMu.Lock()
	defaultCleanupService = svc
	defaultCleanupMu.Unlock()
}

func getCleanupService() CleanupService {
	defaultCleanupMu.RLock()
	defer defaultCleanupMu.RUnlock()
	return defaultCleanupService
}

// StartCleanupWorkers runs the trash sweep on the configured interval until
// ctx is cancelled.
func StartCleanupWorkers(ctx context.Context) {
	svc := getCleanupService()
	if svc == nil {
		return
	}
	go trashSweepLoop(ctx, svc, sweepInterval())
}

func sweepInterval() time.Duration {
	if config.AppConfig == nil || config.AppConfig.Trash.SweepInterval <= 0 {
		return time.Hour
	}
	return config.AppConfig.Trash.Interval()
}

func trashSweepLoop(ctx context.Context, svc CleanupService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.RemoveDeletableFiles(ctx); err != nil {
				slog.ErrorContext(ctx, "trash sweep failed", slog.Any("error", err))
			}
		}
	}
}

func sweepSettings() (concurrency int, batchSize int, lockTTL time.Duration) {
	concurrency, batchSize, lockTTL = 4, 500, 10*time.Minute
	if config.AppConfig == nil {
		return
	}
	trash := config.AppConfig.Trash
	if trash.SweepConcurrency > 0 {
		concurrency = trash.SweepConcurrency
	}
	if trash.SweepBatchSize > 0 {
		batchSize = trash.SweepBatchSize
	}
	if trash.SweepLockTTL > 0 {
		lockTTL = trash.LockTTL()
	}
	return
}

// RemoveDeletableFiles permanently removes every file whose deadline has
// passed. Each file is re-checked under a row lock, then its blob, favorites
// and metadata row go in one transaction. A file whose blob cannot be deleted
// is kept for the next run.
func (s *cleanupService) RemoveDeletableFiles(ctx context.Context) (SweepResult, error) {
	concurrency, batchSize, lockTTL := sweepSettings()

	if s.locks != nil {
		token, err := s.locks.Acquire(ctx, sweepLockKey, lockTTL)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("failed").Inc()
			return SweepResult{}, errInternal("failed to acquire sweep lock", err)
		}
		if token == "" {
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			slog.InfoContext(ctx, "trash sweep skipped, another instance holds the lock")
			return SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := s.locks.Release(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				slog.WarnContext(ctx, "sweep lock not released", slog.Any("error", err))
			}
		}()
	}

	now := s.now()
	var result SweepResult
	for {
		files, err := s.files.ListDeletable(ctx, nil, now, batchSize)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("failed").Inc()
			return result, errInternal("failed to list deletable files", err)
		}

		removed, spared, failed := s.removeBatch(ctx, files, now, concurrency)
		result.Scanned += len(files)
		result.Removed += removed
		result.Spared += spared
		result.Failed += failed

		if len(files) < batchSize || failed > 0 || removed == 0 || ctx.Err() != nil {
			break
		}
	}

	metrics.SweepRuns.WithLabelValues("completed").Inc()
	metrics.SweepRemovedFiles.Add(float64(result.Removed))
	metrics.SweepFailedFiles.Add(float64(result.Failed))
	slog.InfoContext(ctx, "trash sweep finished",
		slog.Int("scanned", result.Scanned),
		slog.Int("removed", result.Removed),
		slog.Int("spared", result.Spared),
		slog.Int("failed", result.Failed),
	)
	return result, ctx.Err()
}

func (s *cleanupService) removeBatch(ctx context.Context, files []models.File, now time.Time, concurrency int) (int, int, int) {
	var removed, spared, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range files {
		file := files[i]
		if file.DeleteAt == nil {
			continue
		}
		g.Go(func() error {
			ok, err := s.removeFile(gctx, file.ID, now)
			switch {
			case err != nil:
				failed.Add(1)
				slog.WarnContext(gctx, "trashed file not removed",
					slog.Uint64("file_id", uint64(file.ID)),
					slog.String("storage_id", file.StorageID),
					slog.Any("error", err),
				)
			case ok:
				removed.Add(1)
			default:
				spared.Add(1)
				slog.InfoContext(gctx, "trashed file no longer due, kept",
					slog.Uint64("file_id", uint64(file.ID)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(removed.Load()), int(spared.Load()), int(failed.Load())
}

// removeFile reports false without error when the file was restored or
// re-trashed after it was listed.
func (s *cleanupService) removeFile(ctx context.Context, fileID uint, now time.Time) (bool, error) {
	removed := false
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		file, err := s.files.LockDeletable(ctx, tx, fileID, now)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.store.Delete(ctx, file.StorageID); err != nil {
			return err
		}
		if err := s.favorites.DeleteByFileID(ctx, tx, file.ID); err != nil {
			return err
		}
		removed, err = s.files.DeleteDeletable(ctx, tx, file.ID, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
