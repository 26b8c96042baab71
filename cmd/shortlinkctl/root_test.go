package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"shortlink/internal/config"
	"shortlink/internal/database"
	"shortlink/internal/service"
)

func sharedStore(store *database.Memory) openFunc {
	return func(context.Context, config.Config) (database.Backend, error) {
		return store, nil
	}
}

func run(t *testing.T, open openFunc, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_CreateResolveStats(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("BASE_URL", "http://sho.rt")
	store := database.NewMemory()

	out, err := run(t, sharedStore(store), "create", "--url", "https://example.com", "--alias", "docs", "--owner", "ops")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "Short URL: http://sho.rt/docs") {
		t.Fatalf("unexpected create output %q", out)
	}

	out, err = run(t, sharedStore(store), "resolve", "--code", "docs")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.TrimSpace(out) != "https://example.com" {
		t.Fatalf("unexpected resolve output %q", out)
	}

	out, err = run(t, sharedStore(store), "stats", "--code", "docs")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Clicks: 1", "Owner: ops", "Long URL: https://example.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in stats output %q", want, out)
		}
	}
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	store := database.NewMemory()

	if _, err := run(t, sharedStore(store), "create", "--url", "not a url"); !errors.Is(err, service.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if _, err := run(t, sharedStore(store), "create", "--url", "https://example.com", "--expires", "soon"); err == nil {
		t.Fatalf("expected error for bad expiry")
	}
	if _, err := run(t, sharedStore(store), "stats", "--code", "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := run(t, sharedStore(store), "create", "--url", "https://a.example", "--alias", "dup"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := run(t, sharedStore(store), "create", "--url", "https://b.example", "--alias", "dup"); !errors.Is(err, service.ErrAliasConflict) {
		t.Fatalf("expected ErrAliasConflict, got %v", err)
	}
}

func TestCLI_OpenFailureIsReported(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	boom := errors.New("no route to host")
	open := func(context.Context, config.Config) (database.Backend, error) { return nil, boom }

	if _, err := run(t, open, "migrate"); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestCLI_MigrateReportsSchemalessStores(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	out, err := run(t, sharedStore(database.NewMemory()), "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "no schema") {
		t.Fatalf("expected memory store to report no schema, got %q", out)
	}

	if got := migrateMessage(config.DriverRedis); !strings.Contains(got, "no schema") {
		t.Fatalf("unexpected redis message %q", got)
	}
	if got := migrateMessage(config.DriverPostgres); got != "Schema for postgres store is up to date" {
		t.Fatalf("unexpected postgres message %q", got)
	}
}
