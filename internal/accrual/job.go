package accrual

import (
	"context"
	"fmt"

	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

// JobName identifies the accrual job in worker logs and metrics.
const JobName = "daily-accrual"

// Job adapts the accrual service to the cron worker's Job interface.
type Job struct {
	svc  Service
	logg *logger.Logger
}

// NewJob builds the scheduled accrual job.
func NewJob(svc Service, logg *logger.Logger) (*Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("accrual service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Job{svc: svc, logg: logg}, nil
}

// Name implements cron.Job.
func (j *Job) Name() string {
	return JobName
}

// Run implements cron.Job.
func (j *Job) Run(ctx context.Context) error {
	report, err := j.svc.RunOnce(ctx)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"period":   report.Period,
		"credited": report.Credited,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"matured":  report.Matured,
	})
	if err != nil {
		j.logg.Error(ctx, "accrual pass finished with failures", err)
		return err
	}
	j.logg.Info(ctx, "accrual pass complete")
	return nil
}
