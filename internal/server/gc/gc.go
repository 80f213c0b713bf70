package gc

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"github.com/samber/lo"
	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/server/db"
)

// defaultBatchSize is the default batch size for cleanup operations
// This can be overridden for testing.
var defaultBatchSize = 500

type Config struct {
	// CRON schedules the cleanup; empty disables the worker.
	CRON string `json:"cron" yaml:"cron" conf:"cron"`

	// AuditRetentionDays keeps audit rows for this many days; zero keeps them forever.
	AuditRetentionDays int  `json:"audit_retention_days" yaml:"audit_retention_days" conf:"audit_retention_days"`
	VacuumEnabled      bool `json:"vacuum_enabled" yaml:"vacuum_enabled" conf:"vacuum_enabled"`
	VacuumFull         bool `json:"vacuum_full" yaml:"vacuum_full" conf:"vacuum_full"`
}

// Worker purges expired audit rows on a cron schedule. Status history is
// never purged.
type Worker struct {
	Executor   executors.ScheduledExecutor
	DB         *db.Client
	Config     Config
	CancelFunc context.CancelFunc
}

type Params struct {
	fx.In

	Config   Config
	Client   *db.Client
	Executor executors.ScheduledExecutor
}

func NewWorker(params Params) *Worker {
	return &Worker{
		Executor: params.Executor,
		DB:       params.Client,
		Config:   params.Config,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if w.Config.CRON == "" {
		log.Info(ctx, "GC worker disabled")
		return nil
	}

	cancelFunc, err := w.Executor.ScheduleFuncAtCronRate(
		w.runCleanup,
		executors.CRONRule{Expr: w.Config.CRON},
	)
	if err != nil {
		return err
	}

	w.CancelFunc = cancelFunc

	log.Info(ctx, "GC worker started",
		log.String("cron", w.Config.CRON),
		log.Int("audit_retention_days", w.Config.AuditRetentionDays),
	)

	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.CancelFunc != nil {
		w.CancelFunc()
	}

	return nil
}

// RunCleanupNow manually triggers the cleanup process.
func (w *Worker) RunCleanupNow(ctx context.Context) {
	w.runCleanup(ctx)
}

func (w *Worker) runCleanup(ctx context.Context) {
	log.Info(ctx, "Starting automatic cleanup process")

	deleted, err := authz.RunWithSystemBypass(ctx, "gc-cleanup", func(ctx context.Context) (int, error) {
		return w.cleanupAuditLogs(ctx, w.Config.AuditRetentionDays)
	})
	if err != nil {
		log.Error(ctx, "Failed to cleanup audit logs", log.Cause(err))
	} else {
		log.Info(ctx, "Successfully cleaned up audit logs",
			log.Int("deleted", deleted),
			log.Int("cleanup_days", w.Config.AuditRetentionDays))
	}

	if w.Config.VacuumEnabled {
		if err := w.runVacuum(ctx); err != nil {
			log.Error(ctx, "Failed to run VACUUM after cleanup", log.Cause(err))
		}
	}

	log.Info(ctx, "Automatic cleanup process completed")
}

// cleanupAuditLogs deletes audit rows older than cleanupDays.
func (w *Worker) cleanupAuditLogs(ctx context.Context, cleanupDays int) (int, error) {
	if cleanupDays <= 0 {
		log.Debug(ctx, "No cleanup needed for audit logs")
		return 0, nil
	}

	cutoff := xtime.ToMillis(xtime.Now().AddDate(0, 0, -cleanupDays))

	return w.deleteInBatches(ctx, func() (int, error) {
		ids, err := w.expiredAuditIDs(ctx, cutoff)
		if err != nil || len(ids) == 0 {
			return 0, err
		}

		q, args := w.DB.Builder().Delete("audit_logs").
			Where(entsql.In("id", lo.ToAnySlice(ids)...)).
			Query()

		res, err := w.DB.Exec(ctx, q, args)
		if err != nil {
			return 0, err
		}

		n, err := res.RowsAffected()

		return int(n), err
	})
}

func (w *Worker) expiredAuditIDs(ctx context.Context, cutoff int64) ([]string, error) {
	q, args := w.DB.Builder().Select("id").
		From(w.DB.Builder().Table("audit_logs")).
		Where(entsql.LT("created_at", cutoff)).
		OrderBy("created_at").
		Limit(defaultBatchSize).
		Query()

	var ids []string

	err := w.DB.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}

			ids = append(ids, id)
		}

		return nil
	})

	return ids, err
}

// deleteInBatches deletes records in batches to avoid memory issues
// This function repeatedly executes the delete query until no more records are deleted.
func (w *Worker) deleteInBatches(ctx context.Context, deleteFunc func() (int, error)) (int, error) {
	totalDeleted := 0

	for {
		deleted, err := deleteFunc()
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to delete batch: %w", err)
		}

		if deleted == 0 {
			break
		}

		totalDeleted += deleted
		log.Debug(ctx, "Deleted batch of records", log.Int("batch_size", deleted), log.Int("total_deleted", totalDeleted))
	}

	return totalDeleted, nil
}

func (w *Worker) runVacuum(ctx context.Context) error {
	d := w.DB.Dialect()
	if d != dialect.SQLite && d != dialect.Postgres {
		log.Debug(ctx, "Database does not support VACUUM, skipping", log.String("dialect", d))
		return nil
	}

	vacuumSQL := "VACUUM"
	if d == dialect.Postgres && w.Config.VacuumFull {
		vacuumSQL = "VACUUM FULL"
	}

	startTime := time.Now()

	if _, err := w.DB.Exec(ctx, vacuumSQL, nil); err != nil {
		return fmt.Errorf("failed to execute %s: %w", vacuumSQL, err)
	}

	log.Info(ctx, "Database VACUUM completed successfully",
		log.Duration("duration", time.Since(startTime)),
		log.String("command", vacuumSQL))

	return nil
}
