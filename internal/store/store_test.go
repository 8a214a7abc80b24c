// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go holds integration tests for the data stores. Tests are
// skipped when PostgreSQL is unavailable.
package store

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"thumbforge/internal/database"
	"thumbforge/internal/models"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "thumbforge")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "thumbforge")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a user row and registers cleanup (cascades to thumbnails).
func testUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()

	users := NewUserStore(db)
	u, err := users.Ensure(context.Background(), "test-"+uuid.New().String(), "t@example.com")
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func testMeta() models.ThumbnailMeta {
	return models.ThumbnailMeta{
		Prompt:      "a test prompt",
		Language:    models.LanguageHindi,
		Size:        models.Size2K,
		AspectRatio: models.RatioLandscape,
		Style:       models.StyleCinematic,
	}
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	externalID := "test-" + uuid.New().String()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM users WHERE external_id = $1`, externalID)
	})

	first, err := users.Ensure(ctx, externalID, "a@example.com")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}

	second, err := users.Ensure(ctx, externalID, "a@example.com")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ensure must resolve to one row: %s vs %s", first.ID, second.ID)
	}

	found, err := users.FindByExternalID(ctx, externalID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Error("find should return the ensured row")
	}
}

func TestFindByExternalIDUnknown(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)

	found, err := users.FindByExternalID(context.Background(), "test-never-"+uuid.New().String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Error("unknown external id should return nil, nil")
	}
}

func TestReserveEnforcesLimit(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	u := testUser(t, db)
	ctx := context.Background()
	now := time.Now()

	// Limit 2: two reservations pass, the third is rejected.
	for i := 0; i < 2; i++ {
		if _, err := thumbs.Reserve(ctx, u.ID, 2, now, testMeta()); err != nil {
			t.Fatalf("reserve %d: %v", i+1, err)
		}
	}

	_, err := thumbs.Reserve(ctx, u.ID, 2, now, testMeta())
	if err != ErrQuotaExceeded {
		t.Errorf("third reserve err = %v, want ErrQuotaExceeded", err)
	}

	count, err := thumbs.CountForMonth(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (pending rows count toward quota)", count)
	}
}

func TestReserveUnlimited(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	u := testUser(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := thumbs.Reserve(ctx, u.ID, -1, time.Now(), testMeta()); err != nil {
			t.Fatalf("unlimited reserve %d: %v", i+1, err)
		}
	}
}

func TestReserveConcurrentAtLimit(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	u := testUser(t, db)
	now := time.Now()

	// Two concurrent reservations against limit 1: exactly one must win.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := thumbs.Reserve(context.Background(), u.ID, 1, now, testMeta())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch err {
		case nil:
			ok++
		case ErrQuotaExceeded:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Errorf("ok=%d rejected=%d, want exactly one winner", ok, rejected)
	}
}

func TestFinalizeAndList(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	u := testUser(t, db)
	ctx := context.Background()

	meta := testMeta()
	meta.Headline = "Launch Day"
	reserved, err := thumbs.Reserve(ctx, u.ID, -1, time.Now(), meta)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// Pending rows do not appear in listings.
	items, err := thumbs.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("pending rows must not be listed, got %d", len(items))
	}

	meta.SearchContext = "context from search"
	meta.GroundingLinks = []models.GroundingLink{{Title: "Src", URI: "https://s.example.com"}}
	err = thumbs.Finalize(ctx, reserved.ID, "https://cdn.example.com/t.png", "thumbnails/x/t.png", meta)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	items, err = thumbs.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list after finalize: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0]
	if got.StorageURL != "https://cdn.example.com/t.png" {
		t.Errorf("storage url = %q", got.StorageURL)
	}
	if got.Headline == nil || *got.Headline != "Launch Day" {
		t.Error("headline not persisted")
	}
	if got.SearchContext == nil || *got.SearchContext != "context from search" {
		t.Error("search context not persisted")
	}
	if len(got.GroundingLinks) != 1 || got.GroundingLinks[0].URI != "https://s.example.com" {
		t.Errorf("grounding links = %+v", got.GroundingLinks)
	}

	// A second finalize must fail: completed rows are immutable.
	err = thumbs.Finalize(ctx, reserved.ID, "https://cdn.example.com/other.png", "k", meta)
	if err == nil {
		t.Error("finalizing a completed row must fail")
	}
}

func TestReleaseReturnsQuotaSlot(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	u := testUser(t, db)
	ctx := context.Background()
	now := time.Now()

	reserved, err := thumbs.Reserve(ctx, u.ID, 1, now, testMeta())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// At limit now.
	if _, err := thumbs.Reserve(ctx, u.ID, 1, now, testMeta()); err != ErrQuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	if err := thumbs.Release(ctx, reserved.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Slot is free again.
	if _, err := thumbs.Reserve(ctx, u.ID, 1, now, testMeta()); err != nil {
		t.Errorf("reserve after release: %v", err)
	}
}

func TestListByUserIsolation(t *testing.T) {
	db := testDB(t)
	thumbs := NewThumbnailStore(db)
	ctx := context.Background()

	a := testUser(t, db)
	b := testUser(t, db)

	reserved, err := thumbs.Reserve(ctx, a.ID, -1, time.Now(), testMeta())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := thumbs.Finalize(ctx, reserved.ID, "https://cdn.example.com/a.png", "k", testMeta()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	items, err := thumbs.ListByUser(ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("user b must not see user a's records, got %d", len(items))
	}
}
