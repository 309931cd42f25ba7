package api

import (
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/mobelwerk/gatehouse/pkg/access"
	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/httputil"
	"github.com/mobelwerk/gatehouse/pkg/observability"
)

// writeServiceError maps domain errors onto HTTP responses. Callers branch
// on the structured payloads, never on message text.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *entitlements.ValidationError
	if errors.As(err, &validationErr) {
		httputil.WriteBadRequest(w, validationErr.Error())
		return
	}

	var notFoundErr *entitlements.NotFoundError
	if errors.As(err, &notFoundErr) {
		httputil.WriteNotFoundError(w, notFoundErr.Error())
		return
	}

	if errors.Is(err, catalog.ErrUnknownModule) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}

	var depErr *entitlements.DependencyViolationError
	if errors.As(err, &depErr) {
		s.observeDependencyViolation(depErr)
		// Exactly one list is present, matching the direction of the
		// rejected write.
		payload := map[string]interface{}{
			"error":      depErr.Error(),
			"module_key": depErr.ModuleKey,
		}
		if len(depErr.MissingDependencies) > 0 {
			payload["missing_dependencies"] = depErr.MissingDependencies
		} else {
			payload["dependent_modules"] = depErr.BlockingDependents
		}
		httputil.WriteJSON(w, http.StatusConflict, payload)
		return
	}

	var deniedErr *access.DeniedError
	if errors.As(err, &deniedErr) {
		d := deniedErr.Decision
		httputil.WriteJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":      deniedErr.Error(),
			"reason":     d.Reason,
			"module_key": d.ModuleKey,
			"org_id":     d.OrgID,
		})
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == "42P01" || pqErr.Code == "42883") {
		// The schema has not been provisioned; retrying is the right call.
		httputil.WriteServiceUnavailable(w, "backend schema unavailable")
		return
	}

	observability.FromContext(r.Context()).WithError(err).Error("request failed")
	httputil.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) observeMutation(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		switch {
		case isDependencyViolation(err):
			outcome = "dependency_violation"
		case isValidationError(err):
			outcome = "validation_error"
		default:
			outcome = "error"
		}
	}
	s.metrics.EntitlementMutationsTotal.WithLabelValues(outcome).Inc()
}

func (s *Server) observeDependencyViolation(depErr *entitlements.DependencyViolationError) {
	if s.metrics == nil {
		return
	}
	check := "enable"
	if len(depErr.BlockingDependents) > 0 {
		check = "disable"
	}
	s.metrics.DependencyViolationsTotal.WithLabelValues(check).Inc()
}

func isDependencyViolation(err error) bool {
	var depErr *entitlements.DependencyViolationError
	return errors.As(err, &depErr)
}

func isValidationError(err error) bool {
	var validationErr *entitlements.ValidationError
	return errors.As(err, &validationErr)
}
