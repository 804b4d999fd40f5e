package cache

import (
	"context"
	"path/filepath"
	"testing"

	"kahaanigo/pkg/db"
)

func TestSQLiteCacheRoundTrip(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db init: %v", err)
	}
	defer d.Close()

	c := NewSQLiteCache(d)
	ctx := context.Background()

	if _, hit := c.GetCache(ctx, "missing"); hit {
		t.Error("expected miss for unknown key")
	}

	if err := c.SetCache(ctx, "poi:abc", []byte("payload")); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, hit := c.GetCache(ctx, "poi:abc")
	if !hit {
		t.Fatal("expected hit")
	}
	if string(val) != "payload" {
		t.Errorf("got %q", val)
	}

	// Overwrite
	if err := c.SetCache(ctx, "poi:abc", []byte("updated")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	val, _ = c.GetCache(ctx, "poi:abc")
	if string(val) != "updated" {
		t.Errorf("expected updated value, got %q", val)
	}
}

func TestNullCache(t *testing.T) {
	var c Cacher = NullCache{}
	ctx := context.Background()

	if err := c.SetCache(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, hit := c.GetCache(ctx, "k"); hit {
		t.Error("null cache must never hit")
	}
}
