package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/orgs"
)

// fakeDirectory implements orgs.Directory in memory with injectable
// failures and call counting.
type fakeDirectory struct {
	admin       bool
	adminErr    error
	memberships map[string]*orgs.Membership // userID|orgID
	listResult  []*orgs.Membership
	getErr      error
	listErr     error
	listCalls   int
}

func membershipKey(userID, orgID uuid.UUID) string {
	return userID.String() + "|" + orgID.String()
}

func (f *fakeDirectory) GetOrganization(ctx context.Context, orgID uuid.UUID) (*orgs.Organization, error) {
	return nil, nil
}

func (f *fakeDirectory) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*orgs.Membership, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.memberships[membershipKey(userID, orgID)], nil
}

func (f *fakeDirectory) ListMemberships(ctx context.Context, userID uuid.UUID, limit int) ([]*orgs.Membership, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

func (f *fakeDirectory) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return f.admin, nil
}

// countingStore implements entitlements.Reader over a row map, counting
// queries so tests can assert how often the store is actually hit.
type countingStore struct {
	rows  map[string]*entitlements.Entitlement // orgID|moduleKey
	err   error
	calls int
}

func rowKey(orgID uuid.UUID, moduleKey string) string {
	return orgID.String() + "|" + moduleKey
}

func (s *countingStore) Get(ctx context.Context, orgID uuid.UUID, moduleKey string) (*entitlements.Entitlement, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[rowKey(orgID, moduleKey)], nil
}

func (s *countingStore) GetForModules(ctx context.Context, orgID uuid.UUID, moduleKeys []string) (map[string]*entitlements.Entitlement, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[string]*entitlements.Entitlement)
	for _, key := range moduleKeys {
		if row, ok := s.rows[rowKey(orgID, key)]; ok {
			result[key] = row
		}
	}
	return result, nil
}

func (s *countingStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*entitlements.Entitlement, error) {
	s.calls++
	return nil, s.err
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Module{
		{Key: "pricing_engine", Name: "Pricing Engine", Core: true},
		{Key: "furniture_configurator", Name: "Furniture Configurator", DependencyKeys: []string{"pricing_engine"}},
		{Key: "inventory", Name: "Inventory"},
	})
	require.NoError(t, err)
	return cat
}

func satisfiedRow(orgID uuid.UUID, moduleKey string) *entitlements.Entitlement {
	return &entitlements.Entitlement{
		OrgID:        orgID,
		ModuleKey:    moduleKey,
		Enabled:      true,
		BillingModel: entitlements.BillingManual,
		Status:       entitlements.StatusActive,
	}
}

type testHarness struct {
	evaluator *Evaluator
	directory *fakeDirectory
	store     *countingStore
	cache     *MemoryCache
	userID    uuid.UUID
	orgID     uuid.UUID
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	userID := uuid.New()
	orgID := uuid.New()
	membership := &orgs.Membership{UserID: userID, OrgID: orgID, IsActive: true}
	directory := &fakeDirectory{
		memberships: map[string]*orgs.Membership{membershipKey(userID, orgID): membership},
		listResult:  []*orgs.Membership{membership},
	}
	store := &countingStore{rows: map[string]*entitlements.Entitlement{}}
	cache := NewMemoryCache(DefaultTTL, DefaultSweepCap)
	return &testHarness{
		evaluator: NewEvaluator(testCatalog(t), directory, store, cache, nil),
		directory: directory,
		store:     store,
		cache:     cache,
		userID:    userID,
		orgID:     orgID,
	}
}

func TestEvaluateUnknownModule(t *testing.T) {
	h := newHarness(t)

	_, err := h.evaluator.Evaluate(context.Background(), h.userID, "no_such_module", Options{})
	assert.ErrorIs(t, err, catalog.ErrUnknownModule)
}

func TestEvaluatePlatformAdminBypassSkipsStore(t *testing.T) {
	h := newHarness(t)
	h.directory.admin = true

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "furniture_configurator", Options{})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonPlatformAdminBypass, decision.Reason)
	assert.True(t, decision.IsPlatformAdmin)
	assert.Equal(t, 0, h.store.calls, "bypass must not query the entitlement store")
}

func TestEvaluateBypassOptOut(t *testing.T) {
	h := newHarness(t)
	h.directory.admin = true
	h.store.rows[rowKey(h.orgID, "pricing_engine")] = satisfiedRow(h.orgID, "pricing_engine")
	h.store.rows[rowKey(h.orgID, "furniture_configurator")] = satisfiedRow(h.orgID, "furniture_configurator")

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "furniture_configurator", Options{DisableBypass: true})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonEnabled, decision.Reason)
	assert.Equal(t, 1, h.store.calls)
}

func TestEvaluateEnabled(t *testing.T) {
	h := newHarness(t)
	h.store.rows[rowKey(h.orgID, "pricing_engine")] = satisfiedRow(h.orgID, "pricing_engine")
	h.store.rows[rowKey(h.orgID, "furniture_configurator")] = satisfiedRow(h.orgID, "furniture_configurator")

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "furniture_configurator", Options{})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonEnabled, decision.Reason)
	require.NotNil(t, decision.OrgID)
	assert.Equal(t, h.orgID, *decision.OrgID)
}

func TestEvaluateNotEntitledWhenDependencyDrifts(t *testing.T) {
	h := newHarness(t)
	// furniture_configurator itself is enabled, but its dependency was
	// moved to canceled by a status-only write after enablement.
	h.store.rows[rowKey(h.orgID, "furniture_configurator")] = satisfiedRow(h.orgID, "furniture_configurator")
	canceled := satisfiedRow(h.orgID, "pricing_engine")
	canceled.Status = entitlements.StatusCanceled
	h.store.rows[rowKey(h.orgID, "pricing_engine")] = canceled

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "furniture_configurator", Options{})
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotEntitled, decision.Reason)
}

func TestEvaluateCachesWithinTTL(t *testing.T) {
	h := newHarness(t)
	h.store.rows[rowKey(h.orgID, "inventory")] = satisfiedRow(h.orgID, "inventory")

	for i := 0; i < 3; i++ {
		decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}
	assert.Equal(t, 1, h.store.calls, "repeated evaluations within TTL must hit the cache")

	_, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{ForceFresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.calls, "ForceFresh must bypass the cache")

	// The forced evaluation repopulated the cache.
	_, err = h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.calls)
}

func TestEvaluateRequeriesAfterTTL(t *testing.T) {
	h := newHarness(t)
	h.store.rows[rowKey(h.orgID, "inventory")] = satisfiedRow(h.orgID, "inventory")

	current := time.Now()
	clock := func() time.Time { return current }
	h.cache.now = clock
	h.evaluator.now = clock

	_, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.calls)

	current = current.Add(DefaultTTL + time.Second)

	_, err = h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.calls, "an expired entry must not serve")
}

func TestEvaluateExplicitOrgNeverFallsThrough(t *testing.T) {
	h := newHarness(t)
	strangerOrg := uuid.New()
	h.store.rows[rowKey(h.orgID, "inventory")] = satisfiedRow(h.orgID, "inventory")

	// The token claim names an org that WOULD resolve; the explicit
	// preferred org must still win and fail.
	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{
		PreferredOrg: strangerOrg.String(),
		ClaimOrg:     h.orgID.String(),
	})
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonOrgNotMember, decision.Reason)
	assert.Nil(t, decision.OrgID)
	assert.Equal(t, 0, h.store.calls)
}

func TestEvaluateMissingOrgContext(t *testing.T) {
	h := newHarness(t)
	h.directory.memberships = map[string]*orgs.Membership{}
	h.directory.listResult = nil

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonMissingOrgContext, decision.Reason)
}

func TestEvaluateBackendFailureDeniedAndNotCached(t *testing.T) {
	h := newHarness(t)
	h.directory.listErr = errors.New("connection refused")

	for i := 0; i < 2; i++ {
		decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonOrgContextUnavailable, decision.Reason)
	}

	assert.Equal(t, 2, h.directory.listCalls, "backend-failure denials must not be cached")
	assert.Equal(t, 0, h.store.calls)
}

func TestEvaluateAdminBypassSurvivesDirectoryOutage(t *testing.T) {
	h := newHarness(t)
	h.directory.admin = true
	h.directory.listErr = errors.New("connection refused")

	decision, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonPlatformAdminBypass, decision.Reason)
}

func TestEvaluateAdminLookupFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.directory.adminErr = errors.New("relation does not exist")

	_, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	assert.Error(t, err)
}

func TestEvaluateStoreFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("connection reset")

	_, err := h.evaluator.Evaluate(context.Background(), h.userID, "inventory", Options{})
	assert.Error(t, err)
	assert.Equal(t, 0, h.cache.Len(context.Background()), "a failed evaluation must not cache")
}

func TestRequireDenialCarriesDecision(t *testing.T) {
	h := newHarness(t)

	_, err := h.evaluator.Require(context.Background(), h.userID, "inventory", Options{})
	require.Error(t, err)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "inventory", denied.Decision.ModuleKey)
	assert.Equal(t, ReasonNotEntitled, denied.Decision.Reason)
	require.NotNil(t, denied.Decision.OrgID)
	assert.Equal(t, h.orgID, *denied.Decision.OrgID)
}

func TestRequireAllowedPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.store.rows[rowKey(h.orgID, "inventory")] = satisfiedRow(h.orgID, "inventory")

	decision, err := h.evaluator.Require(context.Background(), h.userID, "inventory", Options{})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
