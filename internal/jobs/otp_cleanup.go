// Package jobs contains River background jobs.
//
// Import Path: novostudio.tech/foundation/internal/jobs
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"novostudio.tech/foundation/internal/pkg/logger"
)

// DefaultOTPRetention is how long consumed or expired codes are kept for
// auditing before the cleanup job removes them.
const DefaultOTPRetention = 24 * time.Hour

// OTPCleanupArgs is a periodic maintenance job that purges dead one-time
// codes.
type OTPCleanupArgs struct{}

// Kind returns the job kind identifier for periodic OTP cleanup.
func (OTPCleanupArgs) Kind() string { return "otp_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued per hour.
func (OTPCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// OTPCleanupWorker deletes codes that are consumed or expired for longer
// than the retention window.
type OTPCleanupWorker struct {
	river.WorkerDefaults[OTPCleanupArgs]
	db        *sqlx.DB
	retention time.Duration
}

// NewOTPCleanupWorker creates a cleanup worker. Non-positive retention falls
// back to the default.
func NewOTPCleanupWorker(db *sqlx.DB, retention time.Duration) *OTPCleanupWorker {
	if retention <= 0 {
		retention = DefaultOTPRetention
	}
	return &OTPCleanupWorker{db: db, retention: retention}
}

// Work removes dead OTP rows.
func (w *OTPCleanupWorker) Work(ctx context.Context, _ *river.Job[OTPCleanupArgs]) error {
	if w == nil || w.db == nil {
		return fmt.Errorf("otp cleanup worker is not initialized")
	}

	cutoff := time.Now().UTC().Add(-w.retention)
	res, err := w.db.ExecContext(ctx,
		"DELETE FROM otp_codes WHERE consumed_at < $1 OR expires_at < $1", cutoff,
	)
	if err != nil {
		return fmt.Errorf("delete dead otp codes before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("otp cleanup rows affected: %w", err)
	}

	logger.Info("otp cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}
