// Package testhelpers starts the PostGIS and Redis containers used by the
// integration tests. Docker must be available.
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgisImage = "postgis/postgis:16-3.4"
	redisImage   = "redis:7-alpine"
)

// StartPostGIS runs a PostGIS server and returns its DSN. The container is
// terminated through t.Cleanup.
func StartPostGIS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgisImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "soil",
			"POSTGRES_PASSWORD": "soil",
			"POSTGRES_DB":       "soil",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(2 * time.Minute),
	}
	c := start(t, ctx, req)

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("postgis host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgis port: %v", err)
	}
	return fmt.Sprintf("postgres://soil:soil@%s:%s/soil?sslmode=disable", host, port.Port())
}

// StartRedis runs a Redis server and returns host:port.
func StartRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
	}
	c := start(t, ctx, req)

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	return endpoint
}

func start(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s: %v", req.Image, err)
		}
	})
	return c
}
