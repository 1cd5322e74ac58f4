package workspace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/gradewise/internal/db"
	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/workspace"
)

func openSQLStore(t *testing.T) *workspace.SQLStore {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { dbh.Close() })
	return workspace.NewSQLStore(dbh, string(db.DriverSQLite))
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := openSQLStore(t)
	ctx := context.Background()

	in := workspace.Class{
		ID:           "c1",
		Phase:        workspace.PhaseEntry,
		Subjects:     []string{"Math", "Sci"},
		MaxMarks:     100,
		StudentCount: 1,
		Students: []gradebook.Student{
			{ID: "s1", EnrollmentNo: "2024-001", Name: "Ada, L.", Marks: map[string]float64{"Math": 91.5}},
		},
		UpdatedAt: 10,
	}
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != in.Phase || len(got.Subjects) != 2 || got.Students[0].Marks["Math"] != 91.5 || got.Students[0].Name != "Ada, L." {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	in.Phase = workspace.PhaseResults
	in.Error = "x"
	in.UpdatedAt = 20
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = store.Get(ctx, "c1")
	if got.Phase != workspace.PhaseResults || got.Error != "x" {
		t.Fatalf("upsert not applied: %+v", got)
	}

	_ = store.Put(ctx, workspace.Class{ID: "c0", Phase: workspace.PhaseSetup, MaxMarks: 100, UpdatedAt: 5})
	list, err := store.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "c1" {
		t.Fatalf("list: %v %+v", err, list)
	}

	if err := store.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "c1"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(ctx, "c1"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestServiceOverSQLStore(t *testing.T) {
	svc := workspace.NewService(openSQLStore(t))
	ctx := context.Background()

	c, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	c, err = svc.Setup(ctx, c.ID, []string{"Math"}, 2, 50)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetMark(ctx, c.ID, c.Students[0].ID, "Math", "25"); err != nil {
		t.Fatal(err)
	}
	data, _, err := svc.Analysis(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if data.Results[0].Percentage != 50 || data.PassPercentage != 50 {
		t.Fatalf("analysis: %+v", data)
	}
}
