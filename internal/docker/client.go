package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/joho/godotenv"
)

// ContainerInfo holds relevant container information
type ContainerInfo struct {
	ID        string
	Name      string
	ImageTags []string
	Labels    map[string]string
}

// Client wraps the Docker API client
type Client struct {
	cli *client.Client
}

// NewClient creates a new Docker client
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	// Verify connection
	_, err = cli.Ping(context.Background())
	if err != nil {
		return nil, err
	}

	return &Client{cli: cli}, nil
}

// Close closes the Docker client
func (c *Client) Close() error {
	return c.cli.Close()
}

// ListContainers returns all running containers in the order the daemon reports them
func (c *Client) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{
		All: false, // Only running containers
	})
	if err != nil {
		return nil, err
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, ctr := range containers {
		info, err := c.GetContainer(ctx, ctr.ID)
		if err != nil {
			slog.Debug("skipping container that could not be inspected", "container_id", ctr.ID, "error", err)
			continue
		}
		result = append(result, *info)
	}

	return result, nil
}

// GetContainer returns detailed information about a specific container
func (c *Client) GetContainer(ctx context.Context, containerID string) (*ContainerInfo, error) {
	inspect, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, err
	}

	// The tags live on the image, not the container
	img, err := c.cli.ImageInspect(ctx, inspect.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image %s: %w", inspect.Image, err)
	}

	var labels map[string]string
	if inspect.Config != nil {
		labels = inspect.Config.Labels
	}

	return &ContainerInfo{
		ID:        inspect.ID,
		Name:      strings.TrimPrefix(inspect.Name, "/"),
		ImageTags: img.RepoTags,
		Labels:    labels,
	}, nil
}

// ExecResult contains the result of a buffered container exec
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Exec runs a command in a container and buffers its output
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string) (*ExecResult, error) {
	var stdout, stderr bytes.Buffer

	exitCode, err := c.ExecStream(ctx, containerID, cmd, &stdout, &stderr)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// ExecStream runs a command in a container and copies its demultiplexed
// output into stdout and stderr as it arrives. The copy is a blocking pull,
// so a slow writer stalls the process inside the container.
func (c *Client) ExecStream(ctx context.Context, containerID string, cmd []string, stdout, stderr io.Writer) (int, error) {
	if stderr == nil {
		stderr = io.Discard
	}

	execConfig := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	execID, err := c.cli.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return -1, err
	}

	resp, err := c.cli.ContainerExecAttach(ctx, execID.ID, container.ExecStartOptions{})
	if err != nil {
		return -1, err
	}
	defer resp.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, resp.Reader); err != nil {
		return -1, err
	}

	inspectResp, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return -1, err
	}

	return inspectResp.ExitCode, nil
}

// ContainerEnv returns the live environment of a running container, as seen
// by a process started inside it now. This can differ from the environment
// recorded at creation time.
func (c *Client) ContainerEnv(ctx context.Context, containerID string) (map[string]string, error) {
	result, err := c.Exec(ctx, containerID, []string{"env"})
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if result.ExitCode != 0 {
		return nil, fmt.Errorf("env exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return ParseEnv(result.Stdout), nil
}

// BinaryExists reports whether binary is on the container's PATH
func (c *Client) BinaryExists(ctx context.Context, containerID, binary string) (bool, error) {
	result, err := c.Exec(ctx, containerID, []string{"which", binary})
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

// ParseEnv parses KEY=VALUE lines as printed by env(1). Output that the
// dotenv parser rejects falls back to a plain split on the first '='.
func ParseEnv(output string) map[string]string {
	env, err := godotenv.Unmarshal(output)
	if err == nil {
		return env
	}

	env = make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
