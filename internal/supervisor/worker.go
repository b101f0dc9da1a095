package supervisor

import "time"

// State is the lifecycle state of a worker handle.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateFailed   State = "failed"  // spawn failed or process exited with an error
	StateExited   State = "exited"  // process exited cleanly on its own
	StateStopped  State = "stopped" // terminated by Stop or Shutdown
)

// Live reports whether the worker holds its output files.
func (s State) Live() bool {
	return s == StateStarting || s == StateRunning
}

// Worker is a snapshot of one worker handle. Handles are runtime state only
// and are never persisted.
type Worker struct {
	ID           string     `json:"id"`
	Camera       string     `json:"cam_name"`
	SafeName     string     `json:"safe_name"`
	SourceURL    string     `json:"rtsp_url"`
	PlaylistPath string     `json:"playlist_path"`
	StreamURL    string     `json:"stream_url"`
	PID          int        `json:"pid,omitempty"`
	State        State      `json:"state"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	ExitedAt     *time.Time `json:"exited_at,omitempty"`
}
