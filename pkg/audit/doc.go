// Package audit provides the audit trail for entitlement administration.
//
// # Overview
//
// Every administrative write and access denial can be recorded as an Event
// through the Logger interface. Emission is best-effort by contract: the
// primary operation has already been validated and persisted, so a failing
// sink is logged and swallowed, never propagated.
//
// # Sinks
//
// Three sinks ship with the service:
//
//   - DBLogger: PostgreSQL table audit_events, the default in production
//   - FileLogger: append-only NDJSON file, used in development
//   - MultiLogger: fan-out to several sinks
//
// # Retention and archive
//
// DBLogger.DeleteOlderThan implements retention; S3Archiver uploads an
// Export (NDJSON, CSV, or JSON) to object storage before the purge. Both are
// driven by cmd/gatehouse-janitor on a cron schedule.
//
// # Usage Example
//
//	logger, err := audit.NewDBLogger(db)
//	event := audit.NewEvent(ctx, audit.ActionEntitlementUpdated, audit.StatusSuccess)
//	event.ActorID = actor
//	event.OrgID = orgID.String()
//	if err := logger.Log(ctx, event); err != nil {
//		log.WithError(err).Warn("audit sink unavailable")
//	}
package audit
