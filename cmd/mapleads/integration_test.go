//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ligustah/mapleads/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	t.Log("Starting webhook server...")
	hook := testutils.StartWebhookServer(t, testutils.CSVResponse("berlin-plumbers.csv", "name,phone\nAcme,555\n"))

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "mapleads-leads")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	t.Log("Starting Redis container...")
	rds := testutils.StartRedisContainer(t, ctx)
	defer func() {
		if err := rds.Close(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}()
	t.Setenv("MAPLEADS_REDIS_ADDR", rds.Addr)

	submit := func(results string) int {
		return runSubmit([]string{
			"-webhook", hook.URL,
			"-output", minio.BucketURL("mapleads-leads"),
			"-query", "plumbers",
			"-location", "Berlin",
			"-results", results,
		})
	}

	t.Run("submit", func(t *testing.T) {
		if code := submit("75"); code != ExitSuccess {
			t.Fatalf("submit failed with exit code %d", code)
		}

		reqs := hook.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 webhook request, got %d", len(reqs))
		}
		if reqs[0].NumberOfResults != 50 {
			t.Errorf("expected results clamped to 50, got %d", reqs[0].NumberOfResults)
		}
	})

	t.Run("csv_saved", func(t *testing.T) {
		bkt, err := minio.OpenBucket(ctx, "mapleads-leads")
		if err != nil {
			t.Fatalf("open bucket: %v", err)
		}
		defer bkt.Close()

		data, err := bkt.ReadAll(ctx, "berlin-plumbers.csv")
		if err != nil {
			t.Fatalf("read csv: %v", err)
		}
		if string(data) != "name,phone\nAcme,555\n" {
			t.Errorf("unexpected csv %q", data)
		}
		attrs, err := bkt.Attributes(ctx, "berlin-plumbers.csv")
		if err != nil {
			t.Fatalf("attributes: %v", err)
		}
		if attrs.ContentType != "text/csv" {
			t.Errorf("expected text/csv, got %s", attrs.ContentType)
		}
	})

	t.Run("quota_in_redis", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: rds.Addr})
		defer client.Close()

		v, err := client.Get(ctx, redisKeyPrefix+"remainingRuns").Result()
		if err != nil {
			t.Fatalf("get quota: %v", err)
		}
		if v != "2" {
			t.Errorf("expected 2 runs left, got %s", v)
		}
	})

	t.Run("exhaust", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if code := submit("10"); code != ExitSuccess {
				t.Fatalf("submit %d failed with exit code %d", i, code)
			}
		}
		if code := submit("10"); code != ExitQuotaExhausted {
			t.Fatalf("expected exit code %d, got %d", ExitQuotaExhausted, code)
		}
		if n := len(hook.Requests()); n != 3 {
			t.Errorf("expected 3 webhook requests, got %d", n)
		}
	})

	t.Run("reset", func(t *testing.T) {
		if code := runReset(nil); code != ExitSuccess {
			t.Fatalf("reset failed with exit code %d", code)
		}
		if code := runStatus(nil); code != ExitSuccess {
			t.Fatalf("status failed with exit code %d", code)
		}
	})
}
