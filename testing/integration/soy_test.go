//go:build integration

package integration_test

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/zoobzio/arbor"
)

func getTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	return db
}

func TestSoyArchive_CreateBranch(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	branch := arbor.NewBranch(ctx, "integration", "test task")

	stored, err := archive.CreateBranch(ctx, branch)
	if err != nil {
		t.Fatalf("failed to create branch: %v", err)
	}
	defer func() { _ = archive.DeleteBranch(ctx, stored.ID) }()

	if stored.ID == "" {
		t.Error("expected branch to have ID")
	}
	if stored.Task != "test task" {
		t.Errorf("expected task 'test task', got %q", stored.Task)
	}
}

func TestSoyArchive_AddEvent(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	branch := arbor.NewBranch(ctx, "integration", "test task")
	stored, err := archive.CreateBranch(ctx, branch)
	if err != nil {
		t.Fatalf("failed to create branch: %v", err)
	}
	defer func() { _ = archive.DeleteBranch(ctx, stored.ID) }()

	branch.SetArchive(archive)
	if err := branch.AddEvent(ctx, arbor.Event{Kind: arbor.EventDraft, Content: "draft text"}); err != nil {
		t.Fatalf("failed to add event: %v", err)
	}

	events, err := archive.GetEvents(ctx, stored.ID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Content != "draft text" {
		t.Errorf("expected content 'draft text', got %q", events[0].Content)
	}
}

func TestSoyArchive_GetBranchByTraceID(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	branch := arbor.NewBranch(ctx, "integration", "test task")
	stored, err := archive.CreateBranch(ctx, branch)
	if err != nil {
		t.Fatalf("failed to create branch: %v", err)
	}
	defer func() { _ = archive.DeleteBranch(ctx, stored.ID) }()

	loaded, err := archive.GetBranchByTraceID(ctx, branch.TraceID)
	if err != nil {
		t.Fatalf("failed to load branch by trace: %v", err)
	}
	if loaded.ID != stored.ID {
		t.Errorf("expected branch %s, got %s", stored.ID, loaded.ID)
	}
}

func TestSoyArchive_GetChildBranches(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	parent := arbor.NewBranch(ctx, "parent", "test task")
	storedParent, err := archive.CreateBranch(ctx, parent)
	if err != nil {
		t.Fatalf("failed to create parent: %v", err)
	}
	defer func() { _ = archive.DeleteBranch(ctx, storedParent.ID) }()

	fork := parent.Fork(ctx)
	storedFork, err := archive.CreateBranch(ctx, fork)
	if err != nil {
		t.Fatalf("failed to create fork: %v", err)
	}
	defer func() { _ = archive.DeleteBranch(ctx, storedFork.ID) }()

	children, err := archive.GetChildBranches(ctx, storedParent.ID)
	if err != nil {
		t.Fatalf("failed to get children: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
	if children[0].ID != storedFork.ID {
		t.Errorf("expected child %s, got %s", storedFork.ID, children[0].ID)
	}
}
