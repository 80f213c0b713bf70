package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/pkg/watcher"
	"github.com/looplj/caseflow/internal/pkg/xcache"
	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/server/db"
)

type testEnv struct {
	db          *db.Client
	permissions *PermissionService
	members     *MembershipService
	orgs        *OrganizationService
	statuses    *StatusService
	validator   *TransitionValidator
	access      *AccessResolver
	policy      *CasePolicy
	cases       *CaseService
}

func newTestEnv(t *testing.T, cacheConfig xcache.Config) *testEnv {
	t.Helper()

	client, err := db.NewClient(db.Config{Dialect: "sqlite3", DSN: "file::memory:?_pragma=foreign_keys(1)"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Migrate(context.Background()))

	recorder := metrics.NewNoopRecorder()

	permissions, err := NewPermissionService(PermissionServiceParams{
		DB:       client,
		Config:   PermissionConfig{Cache: cacheConfig},
		Notifier: watcher.NewMemoryWatcher[PermissionChange](watcher.Options{}),
		Metrics:  recorder,
	})
	require.NoError(t, err)

	members := NewMembershipService(MembershipServiceParams{DB: client, PermissionService: permissions})
	statuses := NewStatusService(StatusServiceParams{DB: client, MembershipService: members})
	validator := NewTransitionValidator(TransitionValidatorParams{
		DB:                client,
		StatusService:     statuses,
		MembershipService: members,
		PermissionService: permissions,
		Metrics:           recorder,
	})
	access := NewAccessResolver(AccessResolverParams{
		DB:                client,
		MembershipService: members,
		Metrics:           recorder,
	})
	policy := NewCasePolicy(CasePolicyParams{
		MembershipService: members,
		PermissionService: permissions,
		AccessResolver:    access,
	})

	env := &testEnv{
		db:          client,
		permissions: permissions,
		members:     members,
		orgs: NewOrganizationService(OrganizationServiceParams{
			DB:                client,
			Config:            OrganizationConfig{ReservedSubdomains: []string{"www", "api", "admin-.*"}},
			MembershipService: members,
		}),
		statuses:  statuses,
		validator: validator,
		access:    access,
		policy:    policy,
		cases:     NewCaseService(CaseServiceParams{DB: client, Policy: policy, TransitionValidator: validator}),
	}

	_, err = permissions.SeedDefaults(authz.NewTestContext(context.Background()))
	require.NoError(t, err)

	return env
}

func (env *testEnv) insert(t *testing.T, table string, columns []string, values ...any) {
	t.Helper()

	q, args := env.db.Builder().Insert(table).Columns(columns...).Values(values...).Query()
	_, err := env.db.Exec(context.Background(), q, args)
	require.NoError(t, err)
}

func (env *testEnv) addOrg(t *testing.T, id string) {
	t.Helper()
	env.insert(t, "organizations", []string{"id", "name", "subdomain", "plan", "created_at"},
		id, id, id, DefaultPlan, xtime.ToMillis(xtime.Now()))
}

func (env *testEnv) addMember(t *testing.T, orgID, userID, role string) {
	t.Helper()
	env.insert(t, "members", []string{"organization_id", "user_id", "role", "created_at"},
		orgID, userID, role, xtime.ToMillis(xtime.Now()))
}

// addStatus inserts a status; an empty orgID makes it global.
func (env *testEnv) addStatus(t *testing.T, id, orgID string, readOnly bool, workflows ...string) {
	t.Helper()

	var org any
	if orgID != "" {
		org = orgID
	}

	env.insert(t, "case_statuses", []string{"id", "organization_id", "name", "is_read_only", "sort_order"},
		id, org, id, readOnly, 0)

	for _, w := range workflows {
		env.insert(t, "case_status_workflows", []string{"status_id", "workflow"}, id, w)
	}
}

// addCase inserts a case; an empty statusID leaves it without a status.
func (env *testEnv) addCase(t *testing.T, id, orgID, workflow, statusID, createdBy string) {
	t.Helper()

	var status any
	if statusID != "" {
		status = statusID
	}

	env.insert(t, "cases", []string{"id", "organization_id", "title", "workflow", "status_id", "created_by", "created_at"},
		id, orgID, id, workflow, status, createdBy, xtime.ToMillis(xtime.Now()))
}

func (env *testEnv) addUpdate(t *testing.T, id, caseID, authorID string) {
	t.Helper()
	env.insert(t, "case_updates", []string{"id", "case_id", "author_id", "body", "created_at"},
		id, caseID, authorID, "note", xtime.ToMillis(xtime.Now()))
}

func (env *testEnv) addActivity(t *testing.T, id, caseID, assignee string) {
	t.Helper()
	env.insert(t, "case_activities", []string{"id", "case_id", "title", "assigned_to"}, id, caseID, id, assignee)
}

// linkVendor creates vendor vendorID in orgID with contact userID and links it to caseID.
func (env *testEnv) linkVendor(t *testing.T, vendorID, orgID, userID, caseID string) {
	t.Helper()
	env.insert(t, "vendors", []string{"id", "organization_id", "name"}, vendorID, orgID, vendorID)
	env.insert(t, "vendor_contacts", []string{"id", "vendor_id", "user_id"}, vendorID+"-"+userID, vendorID, userID)
	env.insert(t, "case_vendors", []string{"case_id", "vendor_id"}, caseID, vendorID)
}

// seedAcme builds the fixture most tests share:
//
//	org-1 members: owner-1 owner, admin-1 admin, mgr-1 manager, inv-1 investigator,
//	               vendor-1 vendor, vendor-2 vendor, aud-1 auditor
//	org-2 members: outsider admin
//	statuses: open (global; standard, expedited), closed (global, read-only; standard),
//	          triage (org-1; expedited), foreign (org-2; standard)
//	cases: case-1 (org-1, standard, open, by admin-1), case-2 (org-1, expedited, no status),
//	       case-closed (org-1, standard, closed), case-x (org-2, standard, foreign)
func (env *testEnv) seedAcme(t *testing.T) {
	t.Helper()

	env.addOrg(t, "org-1")
	env.addOrg(t, "org-2")

	for user, role := range map[string]string{
		"owner-1":  "owner",
		"admin-1":  "admin",
		"mgr-1":    "manager",
		"inv-1":    "investigator",
		"vendor-1": "vendor",
		"vendor-2": "vendor",
		"aud-1":    "auditor",
	} {
		env.addMember(t, "org-1", user, role)
	}

	env.addMember(t, "org-2", "outsider", "admin")

	env.addStatus(t, "open", "", false, "standard", "expedited")
	env.addStatus(t, "closed", "", true, "standard")
	env.addStatus(t, "triage", "org-1", false, "expedited")
	env.addStatus(t, "foreign", "org-2", false, "standard")

	env.addCase(t, "case-1", "org-1", "standard", "open", "admin-1")
	env.addCase(t, "case-2", "org-1", "expedited", "", "admin-1")
	env.addCase(t, "case-closed", "org-1", "standard", "closed", "admin-1")
	env.addCase(t, "case-x", "org-2", "standard", "foreign", "outsider")
}

func userCtx(userID string) context.Context {
	return authz.NewUserContext(context.Background(), userID)
}
