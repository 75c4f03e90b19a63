//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultMongoImage = "mongo:7"
	DefaultRedisImage = "redis:7-alpine"
)

// SkipIfNoDocker skips the test when the Docker daemon is unreachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// Endpoint is a started container plus the host:port it is reachable on.
type Endpoint struct {
	testcontainers.Container
	Addr string
}

// NewMongoContainer starts a single-node MongoDB.
func NewMongoContainer(ctx context.Context) (*Endpoint, error) {
	c, err := start(ctx, testcontainers.ContainerRequest{
		Image:        DefaultMongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("Waiting for connections"),
		).WithStartupTimeout(90 * time.Second),
	})
	if err != nil {
		return nil, err
	}
	addr, err := c.PortEndpoint(ctx, "27017/tcp", "")
	if err != nil {
		c.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("mongo endpoint: %w", err)
	}
	return &Endpoint{Container: c, Addr: addr}, nil
}

func NewRedisContainer(ctx context.Context) (*Endpoint, error) {
	c, err := start(ctx, testcontainers.ContainerRequest{
		Image:        DefaultRedisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		).WithStartupTimeout(60 * time.Second),
	})
	if err != nil {
		return nil, err
	}
	addr, err := c.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		c.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("redis endpoint: %w", err)
	}
	return &Endpoint{Container: c, Addr: addr}, nil
}

func (e *Endpoint) MongoURI() string {
	return "mongodb://" + e.Addr
}

func start(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", req.Image, err)
	}
	return c, nil
}

// CleanupContainer terminates the container and logs failures.
func CleanupContainer(t *testing.T, ctx context.Context, c testcontainers.Container) {
	t.Helper()

	if c != nil {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}
