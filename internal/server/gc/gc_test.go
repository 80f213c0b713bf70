package gc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zhenzou/executors"

	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/server/db"
)

func newTestWorker(t *testing.T, cfg Config) *Worker {
	t.Helper()

	client, err := db.NewClient(db.Config{Dialect: "sqlite3", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Migrate(context.Background()))

	executor := executors.NewPoolScheduleExecutor(executors.WithMaxConcurrent(1))
	t.Cleanup(func() { _ = executor.Shutdown(context.Background()) })

	return NewWorker(Params{Config: cfg, Client: client, Executor: executor})
}

func insertAudit(t *testing.T, w *Worker, id string, at time.Time) {
	t.Helper()

	q, args := w.DB.Builder().Insert("audit_logs").
		Columns("id", "organization_id", "actor_id", "action", "entity", "entity_id", "detail", "created_at").
		Values(id, "org-1", "system", "test", "test", id, "{}", xtime.ToMillis(at)).
		Query()
	_, err := w.DB.Exec(context.Background(), q, args)
	require.NoError(t, err)
}

func countAudit(t *testing.T, w *Worker) int {
	t.Helper()

	q, args := w.DB.Builder().Select("COUNT(*)").From(w.DB.Builder().Table("audit_logs")).Query()
	n, err := w.DB.Count(context.Background(), q, args)
	require.NoError(t, err)

	return n
}

func TestWorker_CleanupAuditLogs(t *testing.T) {
	originalBatchSize := defaultBatchSize
	defaultBatchSize = 2

	defer func() { defaultBatchSize = originalBatchSize }()

	w := newTestWorker(t, Config{AuditRetentionDays: 30, VacuumEnabled: true})

	now := xtime.Now()
	for _, id := range []string{"old-1", "old-2", "old-3", "old-4", "old-5"} {
		insertAudit(t, w, id, now.AddDate(0, 0, -45))
	}

	insertAudit(t, w, "fresh", now.AddDate(0, 0, -1))

	w.RunCleanupNow(context.Background())

	require.Equal(t, 1, countAudit(t, w))
}

func TestWorker_ZeroRetentionKeepsEverything(t *testing.T) {
	w := newTestWorker(t, Config{})
	insertAudit(t, w, "ancient", xtime.Now().AddDate(-5, 0, 0))

	deleted, err := w.cleanupAuditLogs(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.Equal(t, 1, countAudit(t, w))
}

func TestWorker_StartWithoutCron(t *testing.T) {
	w := newTestWorker(t, Config{})

	require.NoError(t, w.Start(context.Background()))
	require.Nil(t, w.CancelFunc)
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorker_StartSchedules(t *testing.T) {
	w := newTestWorker(t, Config{CRON: "0 3 * * *", AuditRetentionDays: 90})

	require.NoError(t, w.Start(context.Background()))
	require.NotNil(t, w.CancelFunc)
	require.NoError(t, w.Stop(context.Background()))
}
