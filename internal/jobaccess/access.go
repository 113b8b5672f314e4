package jobaccess

import (
	"context"
	"errors"
	"net/http"

	"subtitler/internal/api"
	"subtitler/internal/history"
	"subtitler/internal/services"
)

// ErrJobNotFound is returned by Describe when no job has the given id.
var ErrJobNotFound = errors.New("job not found")

// Access reads job history regardless of daemon API or direct store backing.
type Access interface {
	Stats(ctx context.Context) (api.JobStats, error)
	List(ctx context.Context, limit int) ([]api.Job, error)
	Describe(ctx context.Context, id string) (api.Job, error)
	// Source names the backing ("daemon" or "history").
	Source() string
}

// NewAPIAccess returns an Access backed by the daemon HTTP API.
func NewAPIAccess(client *api.Client) Access {
	return &apiAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct database reads.
func NewStoreAccess(store *history.Store) Access {
	return &storeAccess{store: store}
}

type apiAccess struct {
	client *api.Client
}

func (a *apiAccess) Stats(ctx context.Context) (api.JobStats, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.JobStats{}, err
	}
	if status.Jobs == nil {
		return api.JobStats{}, nil
	}
	return *status.Jobs, nil
}

func (a *apiAccess) List(ctx context.Context, limit int) ([]api.Job, error) {
	return a.client.Jobs(ctx, limit)
}

func (a *apiAccess) Describe(ctx context.Context, id string) (api.Job, error) {
	job, err := a.client.Job(ctx, id)
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return api.Job{}, ErrJobNotFound
	}
	return job, err
}

func (a *apiAccess) Source() string { return "daemon" }

type storeAccess struct {
	store *history.Store
}

func (a *storeAccess) Stats(ctx context.Context) (api.JobStats, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return api.JobStats{}, err
	}
	return *api.FromStats(stats), nil
}

func (a *storeAccess) List(ctx context.Context, limit int) ([]api.Job, error) {
	jobs, err := a.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
}

func (a *storeAccess) Describe(ctx context.Context, id string) (api.Job, error) {
	job, err := a.store.Get(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return api.Job{}, ErrJobNotFound
	}
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(job), nil
}

func (a *storeAccess) Source() string { return "history" }
