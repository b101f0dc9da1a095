package camera

import (
	"context"
	"strings"

	"camstream/internal/supervisor"
)

// Workers is the part of the stream worker supervisor the API depends on.
type Workers interface {
	LaunchAsync(name, source string)
	LaunchActive(ctx context.Context, targets []supervisor.Target) error
	Workers() []supervisor.Worker
}

// NewCamera is the input of AddCamera. A nil Active means active.
type NewCamera struct {
	Name      string
	SourceURL string
	Sequence  int
	Active    *bool
}

// Service applies the camera rules and delegates persistence to Repository and
// worker lifecycle to Workers.
type Service struct {
	repo    Repository
	workers Workers
	baseURL string
}

// NewService returns a Service publishing stream URLs under baseURL.
func NewService(repo Repository, workers Workers, baseURL string) *Service {
	return &Service{repo: repo, workers: workers, baseURL: baseURL}
}

// ListCameras returns the current registry snapshot.
func (s *Service) ListCameras() Registry {
	return Registry{Data: s.repo.List()}
}

// AddCamera registers a camera with a provisional stream URL and, if it is
// active, starts its worker in the background. The call does not wait for the
// worker.
func (s *Service) AddCamera(in NewCamera) (Camera, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	name := strings.TrimSpace(in.Name)
	cam, err := s.repo.Add(Camera{
		Name:      name,
		SourceURL: strings.TrimSpace(in.SourceURL),
		Sequence:  in.Sequence,
		Active:    active,
		StreamURL: supervisor.StreamURL(s.baseURL, name),
	})
	if err != nil {
		return Camera{}, err
	}
	if cam.Active {
		s.workers.LaunchAsync(cam.Name, cam.SourceURL)
	}
	return cam, nil
}

// StartActive launches a worker for every active camera with a source.
func (s *Service) StartActive(ctx context.Context) error {
	var targets []supervisor.Target
	for _, c := range s.repo.List() {
		if c.Active && c.SourceURL != "" {
			targets = append(targets, supervisor.Target{Name: c.Name, SourceURL: c.SourceURL})
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return s.workers.LaunchActive(ctx, targets)
}

// ListWorkers returns the worker handles known to the supervisor.
func (s *Service) ListWorkers() []supervisor.Worker {
	return s.workers.Workers()
}

// HasStream reports whether a registered camera writes to the given stem.
func (s *Service) HasStream(stem string) bool {
	cam, ok := s.repo.Get(stem)
	return ok && supervisor.SafeName(cam.Name) == stem
}

// ActiveCameraCount returns the number of active cameras.
func (s *Service) ActiveCameraCount() int {
	return s.repo.ActiveCameraCount()
}
