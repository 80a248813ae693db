package tasks

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func strp(v string) *string { return &v }

func statusp(v Status) *Status { return &v }

func TestStore_UpdateUnknownIDCreatesImplicitly(t *testing.T) {
	st := newTestStore(t)
	st.EnsureSession("s1")
	st.UpdateTask("s1", "7", Update{Status: statusp(StatusInProgress), Subject: strp("X")})

	got, ok := st.Get("s1", "7")
	if !ok {
		t.Fatal("expected task 7 to be created")
	}
	if got.Status != StatusInProgress || got.Subject != "X" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if !st.HasTasks("s1") {
		t.Fatal("has tasks should be set")
	}
}

func TestStore_UpdateWithoutCollectionIsNoOp(t *testing.T) {
	st := newTestStore(t)
	st.UpdateTask("missing", "1", Update{Subject: strp("X")})
	if st.HasTasks("missing") || len(st.TasksForSession("missing")) != 0 {
		t.Fatal("update without collection should not create anything")
	}
}

func TestStore_DeleteIsTombstone(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Subject: "first"})
	st.UpdateTask("s1", "1", Update{Status: statusp(StatusDeleted)})

	if got := st.TasksForSession("s1"); len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
	if st.HasTasks("s1") {
		t.Fatal("has tasks should clear after last task deleted")
	}
}

func TestStore_DeleteUnknownDoesNotMaterialize(t *testing.T) {
	st := newTestStore(t)
	st.EnsureSession("s1")
	st.UpdateTask("s1", "9", Update{Status: statusp(StatusDeleted), Subject: strp("ghost")})
	if _, ok := st.Get("s1", "9"); ok {
		t.Fatal("deleting an unknown task must not create it")
	}
}

func TestStore_MetadataMergesShallow(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Metadata: map[string]any{"a": 1}})
	st.UpdateTask("s1", "1", Update{Metadata: map[string]any{"b": 2}})

	got, _ := st.Get("s1", "1")
	want := map[string]any{"a": 1, "b": 2}
	if diff := cmp.Diff(want, got.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PartialUpdateLeavesAbsentFields(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Subject: "s", Description: "d", Owner: "me"})
	st.UpdateTask("s1", "1", Update{ActiveForm: strp("Working")})

	got, _ := st.Get("s1", "1")
	if got.Subject != "s" || got.Description != "d" || got.Owner != "me" || got.ActiveForm != "Working" {
		t.Fatalf("unexpected task after partial update: %+v", got)
	}
	if got.Status != StatusPending {
		t.Fatalf("status should default to pending, got %s", got.Status)
	}
}

func TestStore_AddBlocksIsSetUnion(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Blocks: []string{"2"}})
	st.UpdateTask("s1", "1", Update{AddBlocks: []string{"2", "3", "3"}, AddBlockedBy: []string{"0"}})

	got, _ := st.Get("s1", "1")
	if diff := cmp.Diff([]string{"2", "3"}, got.Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0"}, got.BlockedBy); diff != "" {
		t.Fatalf("blocked_by mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CreateReplacesExisting(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Subject: "old", Owner: "a", Metadata: map[string]any{"k": "v"}})
	st.CreateTask("s1", Task{ID: "1", Subject: "new"})

	got, _ := st.Get("s1", "1")
	if got.Subject != "new" || got.Owner != "" || got.Metadata != nil {
		t.Fatalf("create should replace wholesale, got %+v", got)
	}
	if len(st.TasksForSession("s1")) != 1 {
		t.Fatal("upsert should not duplicate")
	}
}

func TestStore_OrderingActiveAndStats(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "10", Status: StatusCompleted})
	st.CreateTask("s1", Task{ID: "2", Status: StatusInProgress})
	st.CreateTask("s1", Task{ID: "abc"})
	st.CreateTask("s1", Task{ID: "3", Status: StatusInProgress})

	list := st.TasksForSession("s1")
	ids := make([]string, 0, len(list))
	for _, task := range list {
		ids = append(ids, task.ID)
	}
	if diff := cmp.Diff([]string{"abc", "2", "3", "10"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	active, ok := st.ActiveTask("s1")
	if !ok || active.ID != "2" {
		t.Fatalf("expected active task 2, got %+v ok=%v", active, ok)
	}

	want := Stats{Total: 4, Pending: 1, InProgress: 2, Completed: 1}
	if got := st.Stats("s1"); got != want {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1"})
	st.CreateTask("s2", Task{ID: "1", Subject: "other"})
	st.ClearSession("s1")

	if st.HasTasks("s1") {
		t.Fatal("s1 should be cleared")
	}
	got, ok := st.Get("s2", "1")
	if !ok || got.Subject != "other" {
		t.Fatalf("s2 should be untouched, got %+v", got)
	}
}

func TestStore_ReturnedTasksAreSnapshots(t *testing.T) {
	st := newTestStore(t)
	st.CreateTask("s1", Task{ID: "1", Blocks: []string{"2"}, Metadata: map[string]any{"a": 1}})
	got, _ := st.Get("s1", "1")
	got.Blocks[0] = "x"
	got.Metadata["a"] = 99

	again, _ := st.Get("s1", "1")
	if again.Blocks[0] != "2" || again.Metadata["a"] != 1 {
		t.Fatalf("store state leaked through snapshot: %+v", again)
	}
}

func TestStore_NestedMetadataIsNotShared(t *testing.T) {
	st := newTestStore(t)
	input := map[string]any{"ci": map[string]any{"runs": []any{"r1"}}}
	st.CreateTask("s1", Task{ID: "1", Metadata: input})
	input["ci"].(map[string]any)["runs"] = []any{"changed"}

	got, _ := st.Get("s1", "1")
	nested := got.Metadata["ci"].(map[string]any)
	nested["runs"].([]any)[0] = "x"
	nested["extra"] = true

	again, _ := st.Get("s1", "1")
	want := map[string]any{"ci": map[string]any{"runs": []any{"r1"}}}
	if diff := cmp.Diff(want, again.Metadata); diff != "" {
		t.Fatalf("nested metadata leaked (-want +got):\n%s", diff)
	}
}
