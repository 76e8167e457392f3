// Package backup runs the capture pipeline: discover containers, dump each
// matched database into a compressed artifact, upload and notify.
package backup

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/shyim/db-auto-backup/internal/compression"
	"github.com/shyim/db-auto-backup/internal/config"
	"github.com/shyim/db-auto-backup/internal/docker"
	"github.com/shyim/db-auto-backup/internal/provider"
)

// Runtime is the part of the container runtime a run depends on
type Runtime interface {
	provider.Inspector
	ListContainers(ctx context.Context) ([]docker.ContainerInfo, error)
	ExecStream(ctx context.Context, containerID string, cmd []string, stdout, stderr io.Writer) (int, error)
}

var _ Runtime = (*docker.Client)(nil)

// RunContext collects the outcome of a single run
type RunContext struct {
	Started    time.Time
	Containers []string // published backups, by container name
	Uploads    []string // confirmed object keys
}

// ExecError is returned when the dump command inside a container failed
type ExecError struct {
	Container string
	ExitCode  int    // -1 when the command could not be run or streamed
	Stderr    string // tail of the command's standard error
	Err       error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		fmt.Fprintf(&b, "dump in %s failed: %v", e.Container, e.Err)
	} else {
		fmt.Fprintf(&b, "dump in %s exited with code %d", e.Container, e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Filename builds the artifact name for a container:
// <base>.<ext><suffix>, where base is the container name optionally joined
// with a timestamp rendered from ts.Format.
func Filename(ts config.TimestampConfig, name, ext string, alg compression.Algorithm, now time.Time) (string, error) {
	base := name
	if ts.Enabled {
		stamp, err := strftime.Format(ts.Format, now)
		if err != nil {
			return "", fmt.Errorf("invalid timestamp format %q: %w", ts.Format, err)
		}
		if strings.EqualFold(ts.Order, "before") {
			base = stamp + "_" + name
		} else {
			base = name + "_" + stamp
		}
	}
	return base + "." + ext + alg.Suffix(), nil
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
