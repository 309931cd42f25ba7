package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mobelwerk/gatehouse/pkg/audit"
	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/orgs"
)

// UpdateRequest carries a partial entitlement mutation. Nil pointer fields
// were not supplied and keep the current row's value; NullableTime fields
// distinguish "not supplied" from an explicit null that clears the bound.
type UpdateRequest struct {
	OrgID        uuid.UUID
	ModuleKey    string
	Enabled      *bool
	BillingModel *string
	Status       *string
	StartsAt     NullableTime
	EndsAt       NullableTime
	Source       *string
	Notes        *string

	// ActorID is the authenticated platform admin performing the write.
	// Recorded on the row and in the audit trail.
	ActorID string
}

// Service owns the entitlement mutation path: validation, dependency
// enforcement, the serialized upsert, and the audit emission.
type Service struct {
	catalog   *catalog.Catalog
	store     Store
	directory orgs.Directory
	enforcer  *Enforcer
	audit     audit.Logger
	log       *logrus.Logger
	now       func() time.Time
}

// NewService creates an entitlement service. A nil auditLogger disables
// audit emission.
func NewService(cat *catalog.Catalog, store Store, directory orgs.Directory, auditLogger audit.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.NewNoOpLogger()
	}
	return &Service{
		catalog:   cat,
		store:     store,
		directory: directory,
		enforcer:  NewEnforcer(cat),
		audit:     auditLogger,
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
}

// Update applies a partial mutation to the (org, module) entitlement row,
// creating it if absent. Checks run in a fixed order: the module and org
// must resolve, payload enums must be valid, the target validity window
// must be ordered, and the dependency enforcer must pass against the target
// enabled value. The dependency check and the upsert run inside the org's
// advisory lock so two concurrent writes cannot both validate against a
// stale snapshot.
func (s *Service) Update(ctx context.Context, req *UpdateRequest) (*Entitlement, error) {
	module, ok := s.catalog.Lookup(req.ModuleKey)
	if !ok {
		return nil, &NotFoundError{Resource: "module", ID: req.ModuleKey}
	}

	// Org existence and the current row have no ordering dependency.
	var (
		org     *orgs.Organization
		current *Entitlement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = s.directory.GetOrganization(gctx, req.OrgID)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = s.store.Get(gctx, req.OrgID, req.ModuleKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &NotFoundError{Resource: "organization", ID: req.OrgID.String()}
	}

	if err := validatePayload(req); err != nil {
		return nil, err
	}
	if err := validateWindow(s.buildTarget(req, current)); err != nil {
		return nil, err
	}

	var canonical *Entitlement
	err := s.store.WithOrgLock(ctx, req.OrgID, func(tx TxStore) error {
		// Re-read under the lock: the pre-lock row may be stale.
		fresh, err := tx.Get(ctx, req.OrgID, req.ModuleKey)
		if err != nil {
			return err
		}
		target := s.buildTarget(req, fresh)
		if err := validateWindow(target); err != nil {
			return err
		}
		if err := s.enforcer.Check(ctx, tx, req.OrgID, module, target.Enabled); err != nil {
			return err
		}
		canonical, err = tx.Upsert(ctx, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, req, current, canonical)
	return canonical, nil
}

// ListModules returns one row per catalog module for the org, joining the
// stored entitlements and filling defaults for modules with no row yet
// (disabled, inactive, manual billing).
func (s *Service) ListModules(ctx context.Context, orgID uuid.UUID) ([]*ModuleEntitlement, error) {
	org, err := s.directory.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &NotFoundError{Resource: "organization", ID: orgID.String()}
	}

	rows, err := s.store.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*Entitlement, len(rows))
	for _, row := range rows {
		byKey[row.ModuleKey] = row
	}

	now := s.now()
	out := make([]*ModuleEntitlement, 0, s.catalog.Len())
	for _, module := range s.catalog.Modules() {
		view := &ModuleEntitlement{
			ModuleKey:      module.Key,
			Name:           module.Name,
			DependencyKeys: module.DependencyKeys,
			Core:           module.Core,
			BillingModel:   BillingManual,
			Status:         StatusInactive,
		}
		if row, ok := byKey[module.Key]; ok {
			view.Enabled = row.Enabled
			view.BillingModel = row.BillingModel
			view.Status = row.Status
			view.StartsAt = row.StartsAt
			view.EndsAt = row.EndsAt
			view.Satisfied = row.Satisfied(now)
		}
		out = append(out, view)
	}
	return out, nil
}

// buildTarget coalesces the request over the current row. A nil current row
// starts from the creation defaults.
func (s *Service) buildTarget(req *UpdateRequest, current *Entitlement) *Entitlement {
	var target Entitlement
	if current != nil {
		target = *current
	} else {
		target = Entitlement{
			OrgID:        req.OrgID,
			ModuleKey:    req.ModuleKey,
			BillingModel: BillingManual,
			Status:       StatusActive,
			Source:       DefaultSource,
		}
	}
	if req.Enabled != nil {
		target.Enabled = *req.Enabled
	}
	if req.BillingModel != nil {
		target.BillingModel = BillingModel(*req.BillingModel)
	}
	if req.Status != nil {
		target.Status = Status(*req.Status)
	}
	if req.StartsAt.Set {
		target.StartsAt = req.StartsAt.Value
	}
	if req.EndsAt.Set {
		target.EndsAt = req.EndsAt.Value
	}
	if req.Source != nil {
		target.Source = *req.Source
	}
	if req.Notes != nil {
		target.Notes = *req.Notes
	}
	target.UpdatedBy = req.ActorID
	return &target
}

// validatePayload checks the supplied enum fields. Only payload values are
// checked; whatever is already stored stands.
func validatePayload(req *UpdateRequest) error {
	if req.BillingModel != nil && !BillingModel(*req.BillingModel).Valid() {
		return &ValidationError{Field: "billing_model", Message: fmt.Sprintf("unknown value %q", *req.BillingModel)}
	}
	if req.Status != nil && !Status(*req.Status).Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown value %q", *req.Status)}
	}
	return nil
}

// validateWindow rejects a target row whose bounds are both set and not
// strictly ordered. The check runs on the coalesced row, so a payload
// ends_at can conflict with a stored starts_at.
func validateWindow(target *Entitlement) error {
	if target.StartsAt != nil && target.EndsAt != nil && !target.EndsAt.After(*target.StartsAt) {
		return &ValidationError{Field: "ends_at", Message: "must be strictly after starts_at"}
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, req *UpdateRequest, before, after *Entitlement) {
	action := audit.ActionEntitlementUpdated
	if req.Enabled != nil {
		wasEnabled := before != nil && before.Enabled
		switch {
		case *req.Enabled && !wasEnabled:
			action = audit.ActionEntitlementEnabled
		case !*req.Enabled && wasEnabled:
			action = audit.ActionEntitlementDisabled
		}
	}

	event := audit.NewEvent(ctx, action, audit.StatusSuccess)
	event.ActorID = req.ActorID
	event.OrgID = req.OrgID.String()
	event.TargetType = "module_entitlement"
	event.TargetID = req.ModuleKey
	event.Changes = map[string]interface{}{"after": auditSnapshot(after)}
	if before != nil {
		event.Changes["before"] = auditSnapshot(before)
	}

	// Audit is best-effort: a sink failure is logged, never propagated.
	if err := s.audit.Log(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"org_id":     req.OrgID,
			"module_key": req.ModuleKey,
		}).Warn("failed to write audit event")
	}
}

func auditSnapshot(e *Entitlement) map[string]interface{} {
	snap := map[string]interface{}{
		"enabled":       e.Enabled,
		"billing_model": string(e.BillingModel),
		"status":        string(e.Status),
		"source":        e.Source,
	}
	if e.StartsAt != nil {
		snap["starts_at"] = e.StartsAt.UTC().Format(time.RFC3339)
	}
	if e.EndsAt != nil {
		snap["ends_at"] = e.EndsAt.UTC().Format(time.RFC3339)
	}
	return snap
}
