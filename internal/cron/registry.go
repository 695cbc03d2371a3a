// Package cron runs the terminal's periodic housekeeping: retrying the offline queue
// between connectivity events and flagging dead letters.
package cron

import "context"

// Job is a periodic task run by the Service.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
