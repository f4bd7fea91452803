//go:build integration

// Package testutils provides a fake lead webhook and throwaway Redis and
// Minio containers for integration tests.
package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"

	"github.com/ligustah/mapleads/internal/webhook"
)

// WebhookResponse is what the fake webhook answers with.
type WebhookResponse struct {
	Status      int
	ContentType string
	Disposition string
	Body        string
}

// CSVResponse answers with body as a CSV attachment named filename.
func CSVResponse(filename, body string) WebhookResponse {
	return WebhookResponse{
		Status:      http.StatusOK,
		ContentType: "text/csv",
		Disposition: fmt.Sprintf("attachment; filename=%q", filename),
		Body:        body,
	}
}

// WebhookServer is a fake lead webhook recording every request it gets.
type WebhookServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []webhook.LeadRequest
}

// Requests returns the decoded request bodies received so far.
func (s *WebhookServer) Requests() []webhook.LeadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhook.LeadRequest(nil), s.requests...)
}

// StartWebhookServer starts a webhook that answers every POST with resp.
func StartWebhookServer(t *testing.T, resp WebhookResponse) *WebhookServer {
	t.Helper()

	s := &WebhookServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req webhook.LeadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		if resp.Disposition != "" {
			w.Header().Set("Content-Disposition", resp.Disposition)
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		io.WriteString(w, resp.Body)
	}))
	t.Cleanup(s.Close)
	return s
}

// RedisEnv contains connection information for a Redis test container.
type RedisEnv struct {
	Container testcontainers.Container
	Addr      string
}

// Close terminates the Redis container.
func (e *RedisEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// StartRedisContainer starts a throwaway Redis server.
func StartRedisContainer(t *testing.T, ctx context.Context) *RedisEnv {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	return &RedisEnv{
		Container: container,
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
	}
}

// MinioEnv contains connection information for a Minio test environment.
type MinioEnv struct {
	Container testcontainers.Container
	Endpoint  string
}

// Close terminates the Minio container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// BucketURL returns the gocloud s3:// URL of bucket in this Minio.
func (e *MinioEnv) BucketURL(bucket string) string {
	return fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
		bucket, e.Endpoint)
}

// OpenBucket opens a gocloud bucket connection to bucket.
func (e *MinioEnv) OpenBucket(ctx context.Context, bucket string) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL(bucket))
}

// StartMinioContainer starts Minio with the given buckets already created.
// AWS credentials are exported for the duration of the test.
func StartMinioContainer(t *testing.T, ctx context.Context, buckets ...string) *MinioEnv {
	t.Helper()

	const (
		accessKey = "minioadmin"
		secretKey = "minioadmin"
	)

	networkName := fmt.Sprintf("mapleads-minio-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{Name: networkName},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "minio/minio:latest",
			ExposedPorts:   []string{"9000/tcp"},
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {"minio"}},
			Env: map[string]string{
				"MINIO_ROOT_USER":     accessKey,
				"MINIO_ROOT_PASSWORD": secretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	script := fmt.Sprintf("mc alias set local http://minio:9000 %s %s", accessKey, secretKey)
	for _, b := range buckets {
		script += " && mc mb --ignore-existing local/" + b
	}
	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd:        []string{script},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("create buckets: %v", err)
	}
	defer mc.Terminate(ctx)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", accessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", secretKey)

	return &MinioEnv{
		Container: container,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
	}
}
