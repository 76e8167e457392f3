package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kballard/go-shellquote"
	"github.com/shyim/db-auto-backup/internal/artifact"
	"github.com/shyim/db-auto-backup/internal/compression"
	"github.com/shyim/db-auto-backup/internal/config"
	"github.com/shyim/db-auto-backup/internal/docker"
	"github.com/shyim/db-auto-backup/internal/notification"
	"github.com/shyim/db-auto-backup/internal/provider"
	"github.com/shyim/db-auto-backup/internal/retention"
	"github.com/shyim/db-auto-backup/internal/storage"
)

// stderrTailSize bounds how much of a dump command's stderr is kept
const stderrTailSize = 4 << 10

// Runner executes backup runs. Containers are processed one at a time; a
// Runner must not be used for overlapping runs.
type Runner struct {
	cfg       config.Config
	runtime   Runtime
	registry  provider.Registry
	uploader  storage.Uploader
	notifier  notification.Notifier
	retention retention.Policy
	progress  io.Writer
}

// Option configures a Runner
type Option func(*Runner)

// WithUploader sets the remote storage. It is only used when the storage
// settings are enabled and complete.
func WithUploader(u storage.Uploader) Option {
	return func(r *Runner) {
		r.uploader = u
	}
}

// WithNotifier sets the success notifier
func WithNotifier(n notification.Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithProgress draws per-container progress on w
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		r.progress = w
	}
}

// NewRunner creates a runner for the given configuration
func NewRunner(cfg config.Config, rt Runtime, registry provider.Registry, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		runtime:   rt,
		registry:  registry,
		retention: retention.Policy{KeepLocal: cfg.Storage.KeepLocal},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one backup of every matched container. Per-container failures
// are logged and skipped. The returned error is non-nil only when containers
// could not be listed or the success notification failed.
func (r *Runner) Run(ctx context.Context, now time.Time) (*RunContext, error) {
	rc := &RunContext{Started: now}

	slog.Info("starting backup")

	containers, err := r.runtime.ListContainers(ctx)
	if err != nil {
		return rc, fmt.Errorf("failed to list containers: %w", err)
	}

	slog.Info("found containers", "count", len(containers))

	uploading := r.uploadEnabled()

	for _, container := range containers {
		p := r.registry.Match(docker.ResolveIdentities(container.ImageTags))
		if p == nil {
			slog.Debug("no provider for container", "container", container.Name, "images", container.ImageTags)
			continue
		}

		path, err := r.backupContainer(ctx, container, p, now)
		if err != nil {
			slog.Error("backup failed",
				"container", container.Name,
				"provider", p.Name,
				"error", err,
			)
			continue
		}

		rc.Containers = append(rc.Containers, container.Name)

		if uploading {
			if key, ok := r.upload(ctx, path); ok {
				rc.Uploads = append(rc.Uploads, key)
			}
		}
	}

	slog.Info("backup complete",
		"containers", len(rc.Containers),
		"duration", time.Since(now).Round(time.Millisecond),
	)
	if r.cfg.Storage.Enabled {
		slog.Info("uploaded backups", "count", len(rc.Uploads))
	}

	if r.notifier != nil {
		report := notification.Report{
			Containers:     rc.Containers,
			Uploads:        rc.Uploads,
			StorageEnabled: r.cfg.Storage.Enabled,
		}
		if err := r.notifier.Send(ctx, report); err != nil {
			return rc, fmt.Errorf("success notification failed: %w", err)
		}
	}

	return rc, nil
}

func (r *Runner) uploadEnabled() bool {
	s := r.cfg.Storage
	if !s.Enabled {
		return false
	}
	if missing := s.Missing(); len(missing) > 0 {
		slog.Warn("S3 upload disabled for this run, settings incomplete", "missing", missing)
		return false
	}
	if r.uploader == nil {
		slog.Warn("S3 upload disabled for this run, no uploader configured")
		return false
	}
	return true
}

// upload sends a published artifact to storage and applies the local
// retention policy when the upload was confirmed
func (r *Runner) upload(ctx context.Context, path string) (string, bool) {
	key := r.cfg.Storage.Key(filepath.Base(path))

	if err := r.uploader.Upload(ctx, path, key); err != nil {
		var uploadErr *storage.UploadError
		if errors.As(err, &uploadErr) {
			slog.Error("upload failed", "file", path, "key", uploadErr.Key, "error", uploadErr.Err)
		} else {
			slog.Error("upload failed", "file", path, "key", key, "error", err)
		}
		return "", false
	}

	slog.Info("uploaded backup", "file", path, "key", key)
	r.retention.AfterUpload(path)
	return key, true
}

// backupContainer dumps one container into its published artifact and
// returns the artifact path. On failure the previous artifact is untouched.
func (r *Runner) backupContainer(ctx context.Context, container docker.ContainerInfo, p *provider.Provider, now time.Time) (string, error) {
	start := time.Now()

	filename, err := Filename(r.cfg.Timestamp, container.Name, p.FileExtension, r.cfg.Compression, now)
	if err != nil {
		return "", err
	}

	command, err := p.Command(ctx, container, r.runtime)
	if err != nil {
		return "", fmt.Errorf("failed to build dump command: %w", err)
	}

	argv, err := shellquote.Split(command)
	if err != nil {
		return "", fmt.Errorf("failed to parse dump command: %w", err)
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("provider %s produced an empty command", p.Name)
	}

	art, err := artifact.New(r.cfg.BackupDir, filename)
	if err != nil {
		return "", err
	}

	slog.Debug("running dump",
		"container", container.Name,
		"provider", p.Name,
		"command", argv[0],
		"file", art.Final,
	)

	out, err := compression.Open(art.Temp, r.cfg.Compression)
	if err != nil {
		return "", err
	}

	var sink io.Writer = out
	var bar *progressWriter
	if r.progress != nil {
		bar = newProgressWriter(out, r.progress, fmt.Sprintf("%s (%s)", container.Name, p.Name))
		sink = bar
	}

	stderr := newTailBuffer(stderrTailSize)
	exitCode, execErr := r.runtime.ExecStream(ctx, container.ID, argv, sink, stderr)
	closeErr := out.Close()
	if bar != nil {
		bar.Finish()
	}

	switch {
	case execErr != nil:
		r.discard(art)
		return "", &ExecError{Container: container.Name, ExitCode: -1, Stderr: stderr.String(), Err: execErr}
	case exitCode != 0:
		r.discard(art)
		return "", &ExecError{Container: container.Name, ExitCode: exitCode, Stderr: stderr.String()}
	case closeErr != nil:
		r.discard(art)
		return "", fmt.Errorf("failed to finish %s: %w", art.Name(), closeErr)
	}

	if msg := stderr.String(); msg != "" {
		slog.Warn("dump command wrote to stderr", "container", container.Name, "stderr", msg)
	}

	if err := art.Publish(); err != nil {
		r.discard(art)
		return "", err
	}

	attrs := []any{
		"container", container.Name,
		"provider", p.Name,
		"file", art.Final,
		"duration", time.Since(start).Round(time.Millisecond),
	}
	if size, err := art.Size(); err == nil {
		attrs = append(attrs, "size", humanize.Bytes(uint64(size)))
	}
	slog.Info("backed up container", attrs...)

	return art.Final, nil
}

func (r *Runner) discard(art *artifact.Artifact) {
	if err := art.Discard(); err != nil {
		slog.Warn("failed to remove temp file", "file", art.Temp, "error", err)
	}
}
