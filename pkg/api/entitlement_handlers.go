package api

import (
	"net/http"
	"time"

	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/httputil"
	"github.com/mobelwerk/gatehouse/pkg/observability"
)

// updateEntitlementRequest is the PUT body. Pointer fields distinguish
// omitted from supplied; NullableTime additionally distinguishes an explicit
// null that clears a window bound.
type updateEntitlementRequest struct {
	Enabled      *bool                     `json:"enabled"`
	BillingModel *string                   `json:"billing_model"`
	Status       *string                   `json:"status"`
	StartsAt     entitlements.NullableTime `json:"starts_at"`
	EndsAt       entitlements.NullableTime `json:"ends_at"`
	Source       *string                   `json:"source"`
	Notes        *string                   `json:"notes"`
}

// updateEntitlement handles PUT /orgs/{org_id}/modules/{module_key}.
// Platform admins only.
func (s *Server) updateEntitlement(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	moduleKey, ok := httputil.ParsePathStringOrError(w, r, "module_key")
	if !ok {
		return
	}

	ident, ok := GetIdentity(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "requester identity required")
		return
	}

	// A failed admin lookup must not read as "not admin".
	isAdmin, err := s.directory.IsPlatformAdmin(r.Context(), ident.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !isAdmin {
		httputil.WriteForbidden(w, "platform admin role required")
		return
	}

	var body updateEntitlementRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	row, err := s.service.Update(r.Context(), &entitlements.UpdateRequest{
		OrgID:        orgID,
		ModuleKey:    moduleKey,
		Enabled:      body.Enabled,
		BillingModel: body.BillingModel,
		Status:       body.Status,
		StartsAt:     body.StartsAt,
		EndsAt:       body.EndsAt,
		Source:       body.Source,
		Notes:        body.Notes,
		ActorID:      ident.UserID.String(),
	})
	if err != nil {
		s.observeMutation(err)
		s.writeServiceError(w, r, err)
		return
	}

	s.observeMutation(nil)
	observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"org_id":     orgID,
		"module_key": moduleKey,
		"version":    row.Version,
	}).Info("entitlement updated")

	httputil.WriteSuccess(w, row)
}

// listOrgModules handles GET /orgs/{org_id}/modules. The caller must hold an
// active membership in the org or be a platform admin.
func (s *Server) listOrgModules(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}

	ident, ok := GetIdentity(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "requester identity required")
		return
	}

	isAdmin, err := s.directory.IsPlatformAdmin(r.Context(), ident.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !isAdmin {
		membership, err := s.directory.GetMembership(r.Context(), ident.UserID, orgID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if membership == nil || !membership.ActiveAt(time.Now()) {
			httputil.WriteForbidden(w, "active membership required")
			return
		}
	}

	modules, err := s.service.ListModules(r.Context(), orgID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"org_id":  orgID,
		"modules": modules,
	})
}

// checkAccess handles GET /orgs/{org_id}/modules/{module_key}/access: a
// diagnostic evaluation returning the full decision, allowed or not. The
// path org participates as an explicit source, so a requester outside the
// org sees an org_not_member denial rather than a fall-through.
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	moduleKey, ok := httputil.ParsePathStringOrError(w, r, "module_key")
	if !ok {
		return
	}

	ident, ok := GetIdentity(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "requester identity required")
		return
	}

	opts := optionsFromRequest(r, ident, "")
	opts.QueryOrg = orgID.String()

	decision, err := s.evaluator.Evaluate(r.Context(), ident.UserID, moduleKey, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, decision)
}

// listCatalogModules handles GET /catalog/modules.
func (s *Server) listCatalogModules(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"modules": s.catalog.Modules(),
	})
}
