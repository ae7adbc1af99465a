package sim

import (
	"context"
	"sync"

	"github.com/san-kum/nemd/internal/checkpoint"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/nemd"
)

// Job is one configuration to sample against a shared snapshot.
type Job struct {
	Name   string
	Config *config.Config
	Sink   Sink
}

// Ensemble samples the same snapshot under several configurations
// concurrently, for comparing layouts side by side.
type Ensemble struct {
	snap *checkpoint.Snapshot
	log  nemd.Logger
}

func NewEnsemble(snap *checkpoint.Snapshot, log nemd.Logger) *Ensemble {
	return &Ensemble{snap: snap, log: log}
}

// Run returns reports in job order. The first error, in job order, wins.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Report, error) {
	reports := make([]*Report, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			reports[idx], errs[idx] = Run(ctx, e.snap, job.Config, job.Sink, e.log)
		}(i, job)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &JobError{Name: jobs[i].Name, Err: err}
		}
	}

	return reports, nil
}

// JobError names the ensemble job that failed.
type JobError struct {
	Name string
	Err  error
}

func (e *JobError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e *JobError) Unwrap() error { return e.Err }
