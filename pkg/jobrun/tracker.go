package jobrun

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
)

// Func is a job body. The returned result is recorded on the run when err
// is nil.
type Func func(ctx context.Context, run *JobRun) (genomic.SubProcessResult, error)

// Tracker wraps job bodies with their run record.
type Tracker struct {
	repo *Repository
}

func NewTracker(repo *Repository) *Tracker {
	return &Tracker{repo: repo}
}

// Run opens a run for job, executes fn and writes exactly one terminal
// record: COMPLETED with fn's result, COMPLETED with ERROR when fn fails, or
// ABORTED with ERROR when fn panics. The panic is re-raised after the write.
func (t *Tracker) Run(ctx context.Context, job genomic.Job, fn Func) (result genomic.SubProcessResult, err error) {
	run, err := t.repo.InsertRun(ctx, job)
	if err != nil {
		return genomic.ResultError, err
	}
	log := logger.WithJob(job.String(), run.ID)
	log.Info("Job run started")
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			t.finish(context.WithoutCancel(ctx), run, genomic.ResultError, genomic.StatusAborted, started)
			log.WithField("panic", fmt.Sprint(p)).Error("Job run aborted")
			panic(p)
		}
	}()

	result, err = fn(ctx, run)
	if err != nil {
		log.WithError(err).Error("Job run failed")
		result = genomic.ResultError
	}
	if werr := t.finish(context.WithoutCancel(ctx), run, result, genomic.StatusCompleted, started); werr != nil && err == nil {
		err = werr
	}
	if err == nil {
		log.WithField("result", result.String()).Info("Job run completed")
	}
	return result, err
}

func (t *Tracker) finish(ctx context.Context, run *JobRun, result genomic.SubProcessResult, status genomic.SubProcessStatus, started time.Time) error {
	metrics.ObserveJobRun(run.JobIDStr, result.String(), time.Since(started))
	if err := t.repo.UpdateRun(ctx, run.ID, result, status); err != nil {
		logger.WithJob(run.JobIDStr, run.ID).WithError(err).Error("Failed to record job run result")
		return err
	}
	return nil
}
