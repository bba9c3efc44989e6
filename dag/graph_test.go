package dag

import (
	"errors"
	"reflect"
	"testing"
)

func mustBuild(t *testing.T, deps map[string][]string) *Graph {
	t.Helper()
	g, err := Build(deps)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return g
}

func TestBuild_Empty(t *testing.T) {
	g := mustBuild(t, map[string][]string{})
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got %d tasks", g.Len())
	}
}

func TestBuild_DanglingDependency(t *testing.T) {
	_, err := Build(map[string][]string{
		"a": {},
		"b": {"missing"},
	})
	if err == nil {
		t.Fatal("expected GraphError for dangling dependency")
	}
	var ge *GraphError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GraphError, got %T", err)
	}
	if ge.TaskID != "b" || ge.DepID != "missing" {
		t.Fatalf("unexpected error fields: %+v", ge)
	}
}

func TestBuild_DuplicateDependenciesCollapsed(t *testing.T) {
	g := mustBuild(t, map[string][]string{
		"a": {},
		"b": {"a", "a", "a"},
	})

	deps, err := g.Dependencies("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(deps, []string{"a"}) {
		t.Fatalf("expected deduplicated deps, got %v", deps)
	}

	dependents, err := g.Dependents("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dependents, []string{"b"}) {
		t.Fatalf("expected single dependent, got %v", dependents)
	}
}

func TestGraph_ReverseAdjacency(t *testing.T) {
	g := mustBuild(t, map[string][]string{
		"a": {},
		"b": {"a"},
		"c": {"a", "b"},
	})

	dependents, err := g.Dependents("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dependents, []string{"b", "c"}) {
		t.Fatalf("expected [b c], got %v", dependents)
	}
}

func TestGraph_UnknownTask(t *testing.T) {
	g := mustBuild(t, map[string][]string{"a": {}})

	_, err := g.Dependencies("ghost")
	var nf *TaskNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *TaskNotFoundError, got %v", err)
	}
	if nf.TaskID != "ghost" {
		t.Fatalf("unexpected task ID: %q", nf.TaskID)
	}

	if _, err := g.Dependents("ghost"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestGraph_IDsSorted(t *testing.T) {
	g := mustBuild(t, map[string][]string{"c": {}, "a": {}, "b": {}})
	if !reflect.DeepEqual(g.IDs(), []string{"a", "b", "c"}) {
		t.Fatalf("expected sorted IDs, got %v", g.IDs())
	}
}

func TestBuildConditional_DefaultsToOnSuccess(t *testing.T) {
	g, err := BuildConditional(map[string][]string{
		"a": {},
		"b": {"a"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cond := g.EdgeCondition("b", "a"); cond != OnSuccess {
		t.Fatalf("expected OnSuccess default, got %s", cond)
	}
}

func TestBuildConditional_InvalidTag(t *testing.T) {
	_, err := BuildConditional(map[string][]string{
		"a": {},
		"b": {"a"},
	}, map[string]map[string]Condition{
		"b": {"a": Condition("sometimes")},
	})
	if err == nil {
		t.Fatal("expected error for invalid condition tag")
	}
}

func TestBuildConditional_ConditionOnMissingEdge(t *testing.T) {
	_, err := BuildConditional(map[string][]string{
		"a": {},
		"b": {},
	}, map[string]map[string]Condition{
		"b": {"a": Always},
	})
	if err == nil {
		t.Fatal("expected error for condition on nonexistent edge")
	}
}
