package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// HLS output policy shared by every worker.
const (
	SegmentSeconds  = 2
	PlaylistWindow  = 10
	stderrTailLines = 8
)

// TranscodeArgs returns the ffmpeg arguments for one camera: read the source
// at native rate and loop it forever, copy video, re-encode audio to AAC, and
// write a rolling HLS playlist whose expired segments are deleted.
func TranscodeArgs(source, playlistPath string) []string {
	return []string{
		"-re",
		"-stream_loop", "-1",
		"-i", source,
		"-c:v", "copy",
		"-c:a", "aac",
		"-f", "hls",
		"-hls_time", strconv.Itoa(SegmentSeconds),
		"-hls_list_size", strconv.Itoa(PlaylistWindow),
		"-hls_flags", "delete_segments",
		playlistPath,
	}
}

// FFmpegLauncher starts ffmpeg processes. Cancelling the context passed to
// Launch sends SIGTERM, and the process is killed if it is still alive after
// the grace period.
type FFmpegLauncher struct {
	bin   string
	grace time.Duration
}

// NewFFmpegLauncher returns a launcher for the given binary ("ffmpeg" if empty).
func NewFFmpegLauncher(bin string, grace time.Duration) *FFmpegLauncher {
	if bin == "" {
		bin = "ffmpeg"
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &FFmpegLauncher{bin: bin, grace: grace}
}

// Launch implements Launcher.
func (l *FFmpegLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if err := os.MkdirAll(filepath.Dir(spec.PlaylistPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, l.bin, TranscodeArgs(spec.SourceURL, spec.PlaylistPath)...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.grace

	stderr := newLineRing(64)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.bin, err)
	}
	return &ffmpegProcess{cmd: cmd, stderr: stderr}, nil
}

type ffmpegProcess struct {
	cmd    *exec.Cmd
	stderr *lineRing
}

func (p *ffmpegProcess) PID() int {
	return p.cmd.Process.Pid
}

// Wait blocks until ffmpeg exits. A non-zero exit carries the stderr tail.
func (p *ffmpegProcess) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	if tail := p.stderr.Last(stderrTailLines); len(tail) > 0 {
		return fmt.Errorf("%w: %s", err, strings.Join(tail, " | "))
	}
	return err
}
