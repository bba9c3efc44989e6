package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/skillsenselab/taskflow/errors"
	"github.com/skillsenselab/taskflow/observability"
	"github.com/skillsenselab/taskflow/workflow"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func sampleWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	w := workflow.New("pipeline", "test workflow")
	for _, task := range []*workflow.Task{
		{ID: "build", Type: workflow.TypeImplementation},
		{ID: "test", DependsOn: []workflow.Dependency{{ID: "build"}}},
	} {
		if err := w.AddTask(task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}
	return w
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	w := sampleWorkflow(t)

	meta, err := s.Save(ctx, w, "ci")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if meta.Version != 1 {
		t.Fatalf("expected version 1, got %d", meta.Version)
	}

	loaded, err := s.Load(ctx, w.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != w.ID || loaded.Name != w.Name {
		t.Fatalf("loaded workflow mismatch: %+v", loaded)
	}
	if len(loaded.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(loaded.Tasks))
	}
	if got := loaded.Tasks["test"].DependsOn[0].ID; got != "build" {
		t.Fatalf("dependency lost on round trip: %q", got)
	}
}

func TestSave_Versioning(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	w := sampleWorkflow(t)

	if _, err := s.Save(ctx, w); err != nil {
		t.Fatalf("Save v1 failed: %v", err)
	}
	w.Phase = workflow.PhaseRunning
	meta, err := s.Save(ctx, w)
	if err != nil {
		t.Fatalf("Save v2 failed: %v", err)
	}
	if meta.Version != 2 {
		t.Fatalf("expected version 2, got %d", meta.Version)
	}

	// Latest wins.
	loaded, err := s.Load(ctx, w.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Phase != workflow.PhaseRunning {
		t.Fatalf("expected latest version, got phase %s", loaded.Phase)
	}

	// Old versions stay reachable.
	v1, err := s.LoadVersion(ctx, w.ID, 1)
	if err != nil {
		t.Fatalf("LoadVersion failed: %v", err)
	}
	if v1.Phase != workflow.PhasePlanning {
		t.Fatalf("expected planning phase in v1, got %s", v1.Phase)
	}

	versions, err := s.Versions(ctx, w.ID)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 2 || versions[0].Version != 1 || versions[1].Version != 2 {
		t.Fatalf("unexpected versions: %+v", versions)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(context.Background(), "ghost")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeNotFound {
		t.Fatalf("expected not-found app error, got %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(s.basePath, "bad_v1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o640); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := s.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestList_TagFilter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	w1 := sampleWorkflow(t)
	w2 := sampleWorkflow(t)
	if _, err := s.Save(ctx, w1, "ci"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Save(ctx, w2, "release"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 workflows, got %d", len(all))
	}

	ci, err := s.List(ctx, "ci")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ci) != 1 || ci[0].WorkflowID != w1.ID {
		t.Fatalf("unexpected filtered list: %+v", ci)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	w := sampleWorkflow(t)

	if _, err := s.Save(ctx, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Save(ctx, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Delete(ctx, w.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, w.ID); err == nil {
		t.Fatal("expected workflow gone after delete")
	}
	if err := s.Delete(ctx, w.ID); err == nil {
		t.Fatal("expected not-found on second delete")
	}
}

func TestCheckHealth(t *testing.T) {
	s := newStore(t)
	h := s.CheckHealth(context.Background())
	if h.Status != observability.HealthStatusUp {
		t.Fatalf("expected up, got %s", h.Status)
	}

	os.RemoveAll(s.basePath)
	h = s.CheckHealth(context.Background())
	if h.Status != observability.HealthStatusDown {
		t.Fatalf("expected down after removing directory, got %s", h.Status)
	}
}

func TestParseVersionFilename(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		version int
		ok      bool
	}{
		{"abc_v1.json", "abc", 1, true},
		{"my_flow_v12.json", "my_flow", 12, true},
		{"abc_v0.json", "", 0, false},
		{"abc.json", "", 0, false},
		{"abc_vx.json", "", 0, false},
		{"_v1.json", "", 0, false},
	}
	for _, tc := range cases {
		id, v, ok := parseVersionFilename(tc.name)
		if ok != tc.ok || id != tc.id || v != tc.version {
			t.Fatalf("parseVersionFilename(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tc.name, id, v, ok, tc.id, tc.version, tc.ok)
		}
	}
}
