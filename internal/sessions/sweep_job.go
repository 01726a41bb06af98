package sessions

import "context"

const sweepJobName = "session_idle_sweep"

// SweepJob evicts idle sessions on each scheduler cycle.
type SweepJob struct {
	svc Service
}

func NewSweepJob(svc Service) *SweepJob {
	return &SweepJob{svc: svc}
}

func (j *SweepJob) Name() string { return sweepJobName }

func (j *SweepJob) Run(ctx context.Context) error {
	j.svc.Sweep(ctx)
	return nil
}
