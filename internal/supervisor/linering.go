package supervisor

import (
	"strings"
	"sync"
)

// lineRing keeps the last lines written to it. It is the stderr sink of a
// worker so a failing ffmpeg can be explained in the exit log.
type lineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	full    bool
	partial strings.Builder
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 32
	}
	return &lineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer. Incomplete trailing lines are held until the
// next newline arrives.
func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := string(p)
	for {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			r.partial.WriteString(s)
			break
		}
		r.partial.WriteString(s[:i])
		r.push(r.partial.String())
		r.partial.Reset()
		s = s[i+1:]
	}
	return len(p), nil
}

func (r *lineRing) push(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.head == 0 {
		r.full = true
	}
}

// Last returns up to n of the most recent lines, oldest first, including a
// pending partial line.
func (r *lineRing) Last(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []string
	if r.full {
		ordered = append(ordered, r.lines[r.head:]...)
	}
	ordered = append(ordered, r.lines[:r.head]...)
	if p := strings.TrimSpace(r.partial.String()); p != "" {
		ordered = append(ordered, p)
	}
	if n >= 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
