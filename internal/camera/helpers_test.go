package camera

import (
	"context"
	"os"
	"sync"

	"camstream/internal/supervisor"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// fakeWorkers records launch requests instead of starting processes.
type fakeWorkers struct {
	mu       sync.Mutex
	launched []supervisor.Target
	startup  []supervisor.Target
	workers  []supervisor.Worker
}

func (f *fakeWorkers) LaunchAsync(name, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, supervisor.Target{Name: name, SourceURL: source})
}

func (f *fakeWorkers) LaunchActive(ctx context.Context, targets []supervisor.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startup = append(f.startup, targets...)
	return nil
}

func (f *fakeWorkers) Workers() []supervisor.Worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]supervisor.Worker(nil), f.workers...)
}

func (f *fakeWorkers) launches() []supervisor.Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]supervisor.Target(nil), f.launched...)
}

// stubProcess runs until its context is cancelled.
type stubProcess struct {
	ctx context.Context
}

func (p stubProcess) PID() int { return 4242 }

func (p stubProcess) Wait() error {
	<-p.ctx.Done()
	return p.ctx.Err()
}

type stubLauncher struct{}

func (stubLauncher) Launch(ctx context.Context, spec supervisor.Spec) (supervisor.Process, error) {
	return stubProcess{ctx: ctx}, nil
}
