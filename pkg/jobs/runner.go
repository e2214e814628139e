package jobs

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"golang.org/x/sync/errgroup"
)

// Runner executes registered jobs under a tracker.
type Runner struct {
	tracker     *jobrun.Tracker
	jobs        []Job
	byName      map[string]Job
	concurrency int
}

func NewRunner(tracker *jobrun.Tracker, jobs []Job, concurrency int) *Runner {
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{tracker: tracker, jobs: jobs, byName: byName, concurrency: concurrency}
}

func (r *Runner) Jobs() []Job { return r.jobs }

func (r *Runner) Run(ctx context.Context, name string) (genomic.SubProcessResult, error) {
	job, ok := r.byName[name]
	if !ok {
		return genomic.ResultError, genomic.NewValidationError("unknown job %q", name)
	}
	return r.tracker.Run(ctx, job.ID, job.Run)
}

// RunAll runs names (every job when empty) concurrently. A failing job does
// not stop the others; the first failure is returned once all finish.
func (r *Runner) RunAll(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		for _, j := range r.jobs {
			names = append(names, j.Name)
		}
	}
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			return genomic.NewValidationError("unknown job %q", name)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := r.Run(ctx, name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		logger.Log.WithError(err).Error("Job batch finished with failures")
	}
	return err
}
