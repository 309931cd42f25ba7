package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/mobelwerk/gatehouse/pkg/audit"
)

var (
	dbURL         = flag.String("db-url", getEnv("GATEHOUSE_DATABASE_URL", getEnv("DATABASE_URL", "postgres://localhost/gatehouse?sslmode=disable")), "PostgreSQL connection URL")
	purgeSchedule = flag.String("purge-schedule", "0 3 * * *", "Cron schedule for the audit retention purge (default: 03:00 UTC)")
	retentionDays = flag.Int("retention-days", 365, "Audit events older than this many days are purged")
	archiveFormat = flag.String("archive-format", string(audit.FormatNDJSON), "Archive serialization: json, ndjson, or csv")
	s3Bucket      = flag.String("s3-bucket", os.Getenv("GATEHOUSE_AUDIT_S3_BUCKET"), "S3 bucket for pre-purge archives (empty disables archiving)")
	s3Prefix      = flag.String("s3-prefix", "audit", "Key prefix inside the archive bucket")
	s3Region      = flag.String("s3-region", getEnv("GATEHOUSE_AUDIT_S3_REGION", "us-east-1"), "S3 region")
	s3Endpoint    = flag.String("s3-endpoint", os.Getenv("GATEHOUSE_AUDIT_S3_ENDPOINT"), "Custom S3 endpoint (MinIO)")
	runOnce       = flag.Bool("run-once", false, "Run the purge once and exit")
)

func main() {
	flag.Parse()

	if *retentionDays <= 0 {
		log.Fatalf("retention-days must be positive, got %d", *retentionDays)
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	auditLog, err := audit.NewDBLogger(db)
	if err != nil {
		log.Fatalf("Failed to open audit store: %v", err)
	}

	var archiver *audit.S3Archiver
	if *s3Bucket != "" {
		archiver, err = audit.NewS3Archiver(context.Background(), audit.S3Config{
			Bucket:    *s3Bucket,
			Prefix:    *s3Prefix,
			Region:    *s3Region,
			Endpoint:  *s3Endpoint,
			AccessKey: os.Getenv("GATEHOUSE_AUDIT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("GATEHOUSE_AUDIT_S3_SECRET_KEY"),
		})
		if err != nil {
			log.Fatalf("Failed to configure S3 archiver: %v", err)
		}
	}

	policy := audit.RetentionPolicy{
		RetentionDays:      *retentionDays,
		ArchiveBeforePurge: archiver != nil,
	}

	if *runOnce {
		if err := runPurge(auditLog, archiver, policy, audit.ExportFormat(*archiveFormat)); err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
		log.Println("Purge completed successfully")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*purgeSchedule, func() {
		log.Println("Starting audit retention purge")
		if err := runPurge(auditLog, archiver, policy, audit.ExportFormat(*archiveFormat)); err != nil {
			log.Printf("Purge failed: %v", err)
		} else {
			log.Println("Purge completed successfully")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule purge: %v", err)
	}

	c.Start()
	log.Println("Gatehouse janitor started")
	log.Printf("Purge schedule: %s", *purgeSchedule)
	log.Printf("Retention: %d days, archiving: %v", *retentionDays, archiver != nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Janitor stopped")
}

// runPurge archives events past the retention cutoff (when a bucket is
// configured) and then deletes them. Archive failures abort the purge so no
// event is dropped unarchived.
func runPurge(auditLog *audit.DBLogger, archiver *audit.S3Archiver, policy audit.RetentionPolicy, format audit.ExportFormat) error {
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := policy.CutoffFrom(now)

	if archiver != nil {
		events, err := collectExpired(ctx, auditLog, cutoff)
		if err != nil {
			return err
		}
		if len(events) > 0 {
			key, err := archiver.Archive(ctx, events, format, now)
			if err != nil {
				return err
			}
			log.Printf("Archived %d events to %s", len(events), key)
		}
	}

	deleted, err := auditLog.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Printf("Deleted %d events older than %s", deleted, cutoff.Format(time.RFC3339))
	return nil
}

// collectExpired pages through every event older than the cutoff.
func collectExpired(ctx context.Context, auditLog *audit.DBLogger, cutoff time.Time) ([]*audit.Event, error) {
	const batchSize = 1000

	var all []*audit.Event
	for offset := 0; ; offset += batchSize {
		batch, err := auditLog.Query(ctx, audit.Filter{
			Until:  &cutoff,
			Limit:  batchSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < batchSize {
			return all, nil
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
