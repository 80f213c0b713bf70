package biz

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/pkg/watcher"
	"github.com/looplj/caseflow/internal/pkg/xcache"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/db"
)

// Permission is a row of the permission matrix.
type Permission struct {
	Role       roles.Role   `json:"role"`
	FeatureKey features.Key `json:"feature_key"`
	Allowed    bool         `json:"allowed"`
}

// PermissionChange is broadcast after an administrative write so that every
// instance drops its cached decisions.
type PermissionChange struct {
	Role       string `json:"role"`
	FeatureKey string `json:"feature_key"`
}

type PermissionConfig struct {
	// SeedDefaults inserts the default matrix rows missing at startup.
	SeedDefaults bool           `conf:"seed_defaults" yaml:"seed_defaults" json:"seed_defaults"`
	Cache        xcache.Config  `conf:"cache" yaml:"cache" json:"cache"`
	Watcher      watcher.Config `conf:"watcher" yaml:"watcher" json:"watcher"`
}

type PermissionServiceParams struct {
	fx.In

	DB       *db.Client
	Config   PermissionConfig
	Notifier watcher.Notifier[PermissionChange]
	Metrics  *metrics.Recorder
}

func NewPermissionService(params PermissionServiceParams) (*PermissionService, error) {
	cache, err := xcache.NewFromConfig[bool](context.Background(), params.Config.Cache, "caseflow:permission:")
	if err != nil {
		return nil, fmt.Errorf("permission cache: %w", err)
	}

	return &PermissionService{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		cache:    cache,
		notifier: params.Notifier,
		metrics:  params.Metrics,
	}, nil
}

// NewPermissionNotifier builds the invalidation channel shared by instances.
func NewPermissionNotifier(cfg PermissionConfig) (watcher.Notifier[PermissionChange], error) {
	return watcher.New[PermissionChange](context.Background(), cfg.Watcher, watcher.Options{
		Channel: "caseflow:permission:changes",
		Buffer:  16,
	})
}

// PermissionService is the role × feature matrix. Missing rows deny.
type PermissionService struct {
	*AbstractService

	cache    xcache.Cache[bool]
	notifier watcher.Notifier[PermissionChange]
	metrics  *metrics.Recorder
	loads    singleflight.Group

	// generation is bumped by every invalidation. A decision read under an
	// older generation is never left in the cache.
	generation atomic.Uint64

	stopOnce sync.Once
	stop     func()
	done     chan struct{}
}

var _ authz.FeatureChecker = (*PermissionService)(nil)

func permissionCacheKey(role roles.Role, key features.Key) string {
	return fmt.Sprintf("%d:%s:%s", len(role), role, key)
}

// IsAllowed reports whether role may use key. Unknown roles and keys deny.
func (s *PermissionService) IsAllowed(ctx context.Context, role roles.Role, key features.Key) (bool, error) {
	if role == "" || key == "" {
		s.metrics.PermissionCheck(ctx, string(role), string(key), false)
		return false, nil
	}

	cacheKey := permissionCacheKey(role, key)

	if allowed, err := s.cache.Get(ctx, cacheKey); err == nil {
		s.metrics.PermissionCheck(ctx, string(role), string(key), allowed)
		return allowed, nil
	}

	gen := s.generation.Load()

	allowed, err := s.load(ctx, cacheKey, gen, role, key)
	if err != nil {
		return false, err
	}

	s.fill(ctx, cacheKey, gen, allowed)

	s.metrics.PermissionCheck(ctx, string(role), string(key), allowed)

	return allowed, nil
}

// fill caches a decision read under gen. When an invalidation ran in the
// meantime the decision may predate it, so the entry is dropped instead.
// Reads inside a transaction may be uncommitted and are not cached.
func (s *PermissionService) fill(ctx context.Context, cacheKey string, gen uint64, allowed bool) {
	if db.TxFromContext(ctx) != nil || s.generation.Load() != gen {
		return
	}

	if err := s.cache.Set(ctx, cacheKey, allowed); err != nil {
		log.Warn(ctx, "failed to cache permission", log.String("key", cacheKey), log.Cause(err))
		return
	}

	// An invalidation between the check and Set may have cleared the cache
	// before our entry landed.
	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			log.Warn(ctx, "failed to drop stale permission", log.String("key", cacheKey), log.Cause(err))
		}
	}
}

// load reads the matrix row. Concurrent misses for the same key and
// generation share one query, except inside a transaction where the caller
// must see its own writes.
func (s *PermissionService) load(ctx context.Context, cacheKey string, gen uint64, role roles.Role, key features.Key) (bool, error) {
	lookup := func() (bool, error) {
		p, found, err := s.Lookup(ctx, role, key)
		if err != nil {
			return false, err
		}

		return found && p.Allowed, nil
	}

	if db.TxFromContext(ctx) != nil {
		return lookup()
	}

	v, err, _ := s.loads.Do(cacheKey+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		return lookup()
	})
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

// Lookup returns the matrix row for (role, key). found is false when no row
// exists, which is distinct from a row with Allowed=false.
func (s *PermissionService) Lookup(ctx context.Context, role roles.Role, key features.Key) (Permission, bool, error) {
	p := Permission{Role: role, FeatureKey: key}

	found, err := s.queryOne(ctx,
		s.selectFrom("permissions", "allowed").Where(entsql.And(
			entsql.EQ("role", string(role)),
			entsql.EQ("feature_key", string(key)),
		)),
		&p.Allowed,
	)
	if err != nil {
		return Permission{}, false, fmt.Errorf("query permission: %w", err)
	}

	return p, found, nil
}

// ListPermissions returns every row of the matrix.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]Permission, error) {
	q, args := s.selectFrom("permissions", "role", "feature_key", "allowed").OrderBy("role", "feature_key").Query()

	var out []Permission

	err := s.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				p         Permission
				role, key string
			)

			if err := rows.Scan(&role, &key, &p.Allowed); err != nil {
				return err
			}

			p.Role, p.FeatureKey = roles.Role(role), features.Key(key)
			out = append(out, p)
		}

		return nil
	})

	return out, err
}

func requireAdministrator(ctx context.Context) error {
	if err := authz.RequireSystemPrincipal(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	return nil
}

// SetPermission upserts a matrix row. Only the system principal may call it.
func (s *PermissionService) SetPermission(ctx context.Context, role roles.Role, key features.Key, allowed bool) error {
	if err := requireAdministrator(ctx); err != nil {
		return err
	}

	r, ok := roles.Parse(string(role))
	if !ok || key == "" {
		return fmt.Errorf("%w: role and feature key are required", ErrInvalidInput)
	}

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.exec(ctx, s.db.Builder().Insert("permissions").
			Columns("role", "feature_key", "allowed").
			Values(string(r), string(key), allowed).
			OnConflict(
				entsql.ConflictColumns("role", "feature_key"),
				entsql.ResolveWithNewValues(),
			))

		return err
	})
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}

	log.Info(ctx, "permission set",
		log.String("role", string(r)),
		log.String("feature", string(key)),
		log.Bool("builtin", features.IsBuiltin(string(key))),
		log.Bool("allowed", allowed),
	)

	s.invalidate(ctx, PermissionChange{Role: string(r), FeatureKey: string(key)})

	return nil
}

// UnsetPermission deletes a matrix row so the pair falls back to deny.
func (s *PermissionService) UnsetPermission(ctx context.Context, role roles.Role, key features.Key) error {
	if err := requireAdministrator(ctx); err != nil {
		return err
	}

	r, ok := roles.Parse(string(role))
	if !ok || key == "" {
		return fmt.Errorf("%w: role and feature key are required", ErrInvalidInput)
	}

	_, err := s.exec(ctx, s.db.Builder().Delete("permissions").Where(entsql.And(
		entsql.EQ("role", string(r)),
		entsql.EQ("feature_key", string(key)),
	)))
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	log.Info(ctx, "permission unset", log.String("role", string(r)), log.String("feature", string(key)))

	s.invalidate(ctx, PermissionChange{Role: string(r), FeatureKey: string(key)})

	return nil
}

// DefaultPermissions is the matrix seeded for new installations.
// Rows with Allowed=false are explicit denials.
func DefaultPermissions() []Permission {
	var out []Permission

	grant := func(role roles.Role, allowed bool, keys ...features.Key) {
		for _, k := range keys {
			out = append(out, Permission{Role: role, FeatureKey: k, Allowed: allowed})
		}
	}

	for _, role := range []roles.Role{roles.Owner, roles.Admin} {
		for _, f := range features.All(nil) {
			grant(role, true, f.Key)
		}
	}

	grant(roles.Manager, true,
		features.ModifyCaseStatus,
		features.EditUpdates,
		features.EditOwnUpdates,
		features.DeleteUpdates,
		features.DeleteOwnUpdates,
		features.ManageStatuses,
	)

	grant(roles.Investigator, true, features.ModifyCaseStatus, features.EditOwnUpdates)
	grant(roles.Investigator, false, features.DeleteOwnUpdates)

	grant(roles.Vendor, true, features.EditOwnUpdates)
	grant(roles.Vendor, false, features.ModifyCaseStatus)

	return out
}

// SeedDefaults inserts the default rows that are missing. Existing rows,
// including explicit denials, are kept. It returns the number of inserted rows.
func (s *PermissionService) SeedDefaults(ctx context.Context) (int, error) {
	if err := requireAdministrator(ctx); err != nil {
		return 0, err
	}

	inserted := 0

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, p := range DefaultPermissions() {
			_, found, err := s.Lookup(ctx, p.Role, p.FeatureKey)
			if err != nil {
				return err
			}

			if found {
				continue
			}

			if _, err := s.exec(ctx, s.db.Builder().Insert("permissions").
				Columns("role", "feature_key", "allowed").
				Values(string(p.Role), string(p.FeatureKey), p.Allowed)); err != nil {
				return fmt.Errorf("seed %s/%s: %w", p.Role, p.FeatureKey, err)
			}

			inserted++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		log.Info(ctx, "default permissions seeded", log.Int("inserted", inserted))
		s.invalidate(ctx, PermissionChange{})
	}

	return inserted, nil
}

func (s *PermissionService) invalidate(ctx context.Context, change PermissionChange) {
	s.clearLocal(ctx)

	if s.notifier == nil {
		return
	}

	if err := s.notifier.Notify(ctx, change); err != nil {
		log.Warn(ctx, "failed to broadcast permission change", log.Cause(err))
	}
}

func (s *PermissionService) clearLocal(ctx context.Context) {
	s.generation.Add(1)

	if err := s.cache.Clear(ctx); err != nil {
		log.Warn(ctx, "failed to clear permission cache", log.Cause(err))
	}
}

// Start clears the local cache whenever another instance reports a change.
func (s *PermissionService) Start(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}

	events, stop := s.notifier.Watch()
	s.stop = stop
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		for change := range events {
			s.clearLocal(context.Background())

			log.Debug(context.Background(), "permission cache cleared",
				log.String("role", change.Role),
				log.String("feature", change.FeatureKey),
			)
		}
	}()

	return nil
}

func (s *PermissionService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.stop == nil {
			return
		}

		s.stop()

		select {
		case <-s.done:
		case <-ctx.Done():
		}
	})

	return nil
}
