package supervisor

import (
	"context"
	"errors"
	"sync"
)

type fakeProcess struct {
	pid  int
	ctx  context.Context
	exit chan error
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Wait() error {
	select {
	case err := <-p.exit:
		return err
	case <-p.ctx.Done():
		return errors.New("signal: terminated")
	}
}

type fakeLauncher struct {
	mu      sync.Mutex
	specs   []Spec
	procs   map[string]*fakeProcess
	failErr error
	nextPID int
	// gate, when set, blocks Launch until it is closed.
	gate chan struct{}
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{procs: make(map[string]*fakeProcess), nextPID: 1000}
}

func (l *fakeLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.specs = append(l.specs, spec)
	if l.failErr != nil {
		return nil, l.failErr
	}
	l.nextPID++
	p := &fakeProcess{pid: l.nextPID, ctx: ctx, exit: make(chan error, 1)}
	l.procs[spec.SafeName] = p
	return p, nil
}

func (l *fakeLauncher) launches() []Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Spec(nil), l.specs...)
}

func (l *fakeLauncher) process(safe string) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[safe]
}

type fakeRecorder struct {
	mu   sync.Mutex
	urls map[string]string
	err  error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{urls: make(map[string]string)}
}

func (r *fakeRecorder) SetStreamURL(name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.urls[name] = url
	return nil
}

func (r *fakeRecorder) url(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.urls[name]
}
