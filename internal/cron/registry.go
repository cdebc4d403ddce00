package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one maintenance task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order, unique by name.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("job %q registered twice", name)
	}
	r.byName[name] = job
	r.jobs = append(r.jobs, job)
	return nil
}

// Select returns the named jobs in registration order, or every job when
// names is empty.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return append([]Job(nil), r.jobs...), nil
	}
	wanted := map[string]bool{}
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown jobs %s (have %s)", strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	var jobs []Job
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// Names lists the job names for startup logs.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
