package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is a maintenance task the scheduler runs on every tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds scheduled jobs keyed by name, in registration order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order and fails on the first invalid or duplicate job.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Job names label metrics and logs, so they must be unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Len reports how many jobs are registered.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.jobs)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
