package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/campuskit/checklists/internal/model"
	"github.com/campuskit/checklists/internal/remote"
	"github.com/campuskit/checklists/internal/session"
	"github.com/campuskit/checklists/internal/store"
)

func ptr(s string) *string { return &s }

var errRemote = errors.New("service unavailable")

// fakeService implements remote.Service with per-method failure
// switches. updateHook, when set, takes over UpdateItem so tests can
// control the interleaving of in-flight calls.
type fakeService struct {
	mu gosync.Mutex

	failFetch  bool
	failCreate bool
	failUpdate bool
	failDelete bool
	failToggle bool

	fetchResult []model.Checklist
	templates   []model.Template

	updateHook func(id string, patch model.ItemPatch) error

	updateItemCalls []string
	deleteItemCalls []string
}

func (f *fakeService) FetchUserChecklists(ctx context.Context, userID string) ([]model.Checklist, error) {
	if f.failFetch {
		return nil, errRemote
	}
	return f.fetchResult, nil
}

func (f *fakeService) CreateChecklist(ctx context.Context, userID string, draft remote.ChecklistDraft) (*model.Checklist, error) {
	if f.failCreate {
		return nil, errRemote
	}
	return &model.Checklist{ID: "srv-cl", UserID: userID, Title: draft.Title, Category: draft.Category}, nil
}

func (f *fakeService) UpdateChecklist(ctx context.Context, id string, patch model.ChecklistPatch) error {
	if f.failUpdate {
		return errRemote
	}
	return nil
}

func (f *fakeService) DeleteChecklist(ctx context.Context, id string) error {
	if f.failDelete {
		return errRemote
	}
	return nil
}

func (f *fakeService) CreateItem(ctx context.Context, userID string, draft remote.ItemDraft) (*model.Item, error) {
	if f.failCreate {
		return nil, errRemote
	}
	return &model.Item{
		ID:          "srv-item",
		UserID:      userID,
		ChecklistID: draft.ChecklistID,
		Title:       draft.Title,
		Priority:    draft.Priority,
		ParentID:    draft.ParentID,
		SortOrder:   draft.SortOrder,
	}, nil
}

func (f *fakeService) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	if f.updateHook != nil {
		return f.updateHook(id, patch)
	}

	f.mu.Lock()
	f.updateItemCalls = append(f.updateItemCalls, id)
	f.mu.Unlock()

	if f.failUpdate {
		return errRemote
	}
	return nil
}

func (f *fakeService) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteItemCalls = append(f.deleteItemCalls, id)
	f.mu.Unlock()

	if f.failDelete {
		return errRemote
	}
	return nil
}

func (f *fakeService) ToggleItem(ctx context.Context, id string, completed bool) error {
	if f.failToggle {
		return errRemote
	}
	return nil
}

func (f *fakeService) ReorderItems(ctx context.Context, entries []remote.SortEntry) error {
	if f.failUpdate {
		return errRemote
	}
	return nil
}

func (f *fakeService) FetchTemplates(ctx context.Context) ([]model.Template, error) {
	return f.templates, nil
}

func (f *fakeService) CopyTemplateToUser(ctx context.Context, userID, templateID string) (*model.Checklist, error) {
	if f.failCreate {
		return nil, errRemote
	}
	return &model.Checklist{ID: "copied", UserID: userID, Title: "From template"}, nil
}

// fakeSnapshots is an in-memory Snapshots implementation.
type fakeSnapshots struct {
	saved map[string][]model.Checklist
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: make(map[string][]model.Checklist)}
}

func (f *fakeSnapshots) SaveSnapshot(ctx context.Context, userID string, checklists []model.Checklist) error {
	f.saved[userID] = checklists
	return nil
}

func (f *fakeSnapshots) LoadSnapshot(ctx context.Context, userID string) ([]model.Checklist, error) {
	return f.saved[userID], nil
}

func (f *fakeSnapshots) Clear(ctx context.Context, userID string) error {
	delete(f.saved, userID)
	return nil
}

func newTestManager(t *testing.T, svc *fakeService) (*Manager, *store.Store) {
	t.Helper()

	st := store.New()
	m := NewManager(st, svc, nil)
	m.setUser("u1")
	return m, st
}

func seedChecklist(st *store.Store) {
	st.SetChecklists([]model.Checklist{{
		ID:     "cl1",
		UserID: "u1",
		Title:  "Arrival Tasks",
		Items: []model.Item{
			{ID: "i1", ChecklistID: "cl1", Title: "Original", SortOrder: 0},
			{ID: "i2", ChecklistID: "cl1", Title: "Second", ParentID: ptr("i1"), SortOrder: 1},
		},
	}})
}

func TestUpdateItemRollsBackOnFailure(t *testing.T) {
	svc := &fakeService{failUpdate: true}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	title := "Updated"
	err := m.UpdateItem(context.Background(), "cl1", "i1", model.ItemPatch{Title: &title})
	if err == nil {
		t.Fatal("expected the remote failure to propagate")
	}
	if !errors.Is(err, errRemote) {
		t.Errorf("error should wrap the remote failure, got %v", err)
	}

	it, _ := st.Item("cl1", "i1")
	if it.Title != "Original" {
		t.Errorf("title = %q, want rollback to %q", it.Title, "Original")
	}
	if st.Error() == "" {
		t.Error("store error message should be set after a failed mutation")
	}
}

func TestUpdateItemSettlesOnSuccess(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	title := "Updated"
	if err := m.UpdateItem(context.Background(), "cl1", "i1", model.ItemPatch{Title: &title}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	it, _ := st.Item("cl1", "i1")
	if it.Title != "Updated" {
		t.Errorf("title = %q, want %q", it.Title, "Updated")
	}
	if st.Error() != "" {
		t.Errorf("no error expected, got %q", st.Error())
	}
}

func TestCreateChecklistReconcilesServerID(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)

	draft := remote.ChecklistDraft{Title: "New List", Category: model.CategoryCustom}
	if err := m.CreateChecklist(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lists := st.Checklists()
	if len(lists) != 1 {
		t.Fatalf("expected 1 checklist, got %d", len(lists))
	}
	if lists[0].ID != "srv-cl" {
		t.Errorf("id = %q, want server-assigned %q", lists[0].ID, "srv-cl")
	}
	if !st.IsExpanded("srv-cl") {
		t.Error("expansion flag should follow the id swap")
	}
	if st.ShowEditor() {
		t.Error("editor should close once the create settles")
	}
}

func TestCreateChecklistRollsBackOnFailure(t *testing.T) {
	svc := &fakeService{failCreate: true}
	m, st := newTestManager(t, svc)

	draft := remote.ChecklistDraft{Title: "Doomed", Category: model.CategoryCustom}
	if err := m.CreateChecklist(context.Background(), draft); err == nil {
		t.Fatal("expected failure")
	}
	if len(st.Checklists()) != 0 {
		t.Error("optimistic checklist should be removed on rollback")
	}
}

func TestCreateItemReconcilesServerID(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	draft := remote.ItemDraft{ChecklistID: "cl1", Title: "New item"}
	if err := m.CreateItem(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := st.Item("cl1", "srv-item"); !ok {
		t.Error("item should carry the server-assigned id after settling")
	}
	items, _ := st.Items("cl1")
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}

func TestDeleteChecklistRollbackRestoresPosition(t *testing.T) {
	svc := &fakeService{failDelete: true}
	m, st := newTestManager(t, svc)
	st.SetChecklists([]model.Checklist{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second"},
		{ID: "c", Title: "Third"},
	})

	if err := m.DeleteChecklist(context.Background(), "b"); err == nil {
		t.Fatal("expected failure")
	}

	lists := st.Checklists()
	if len(lists) != 3 || lists[1].ID != "b" {
		ids := make([]string, len(lists))
		for i := range lists {
			ids[i] = lists[i].ID
		}
		t.Errorf("rollback should restore table position, got %v", ids)
	}
}

func TestDeleteItemMirrorsPromotionRemotely(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	if err := m.DeleteItem(context.Background(), "cl1", "i1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// i2 is promoted to root before i1 is deleted.
	if len(svc.updateItemCalls) != 1 || svc.updateItemCalls[0] != "i2" {
		t.Errorf("expected promotion update for i2, got %v", svc.updateItemCalls)
	}
	if len(svc.deleteItemCalls) != 1 || svc.deleteItemCalls[0] != "i1" {
		t.Errorf("expected delete for i1, got %v", svc.deleteItemCalls)
	}

	items, _ := st.Items("cl1")
	if len(items) != 1 || items[0].ID != "i2" || items[0].ParentID != nil {
		t.Errorf("i2 should remain as a root item, got %+v", items)
	}
}

func TestToggleItemRollbackRestoresSubtree(t *testing.T) {
	svc := &fakeService{failToggle: true}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	if err := m.ToggleItem(context.Background(), "cl1", "i1"); err == nil {
		t.Fatal("expected failure")
	}

	items, _ := st.Items("cl1")
	for _, it := range items {
		if it.IsCompleted || it.CompletedAt != nil {
			t.Errorf("%s should be rolled back to incomplete", it.ID)
		}
	}
}

func TestReparentRejectsCycleWithoutMutationOrCall(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	// i1 is i2's parent; moving i1 under i2 would create a cycle.
	if err := m.ReparentItem(context.Background(), "cl1", "i1", ptr("i2")); err != nil {
		t.Fatalf("cycle rejection must be silent, got %v", err)
	}

	if len(svc.updateItemCalls) != 0 {
		t.Error("no remote call may be issued for a rejected re-parent")
	}
	it, _ := st.Item("cl1", "i1")
	if it.ParentID != nil {
		t.Error("store must not be mutated by a rejected re-parent")
	}
	if st.Error() != "" {
		t.Error("validation failures surface no error message")
	}
}

// A slow failing mutation must not roll back state written by a newer
// mutation to the same item.
func TestStaleFailureDoesNotClobberNewerMutation(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	seedChecklist(st)

	started := make(chan string)
	release := map[string]chan error{
		"First":  make(chan error),
		"Second": make(chan error),
	}
	svc.updateHook = func(id string, patch model.ItemPatch) error {
		title := *patch.Title
		started <- title
		return <-release[title]
	}

	firstDone := make(chan error, 1)
	first := "First"
	go func() {
		firstDone <- m.UpdateItem(context.Background(), "cl1", "i1", model.ItemPatch{Title: &first})
	}()
	<-started // first mutation applied, blocked in flight

	secondDone := make(chan error, 1)
	second := "Second"
	go func() {
		secondDone <- m.UpdateItem(context.Background(), "cl1", "i1", model.ItemPatch{Title: &second})
	}()
	<-started // second mutation applied on top

	// The newer mutation settles first, then the older one fails.
	release["Second"] <- nil
	if err := <-secondDone; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release["First"] <- errRemote
	if err := <-firstDone; err == nil {
		t.Fatal("expected the stale mutation to report its failure")
	}

	it, _ := st.Item("cl1", "i1")
	if it.Title != "Second" {
		t.Errorf("title = %q; the stale rollback must be skipped", it.Title)
	}
}

func TestLoadFailureFallsBackToSnapshot(t *testing.T) {
	svc := &fakeService{failFetch: true}
	st := store.New()
	snap := newFakeSnapshots()
	snap.saved["u1"] = []model.Checklist{{ID: "cached", Title: "Cached List"}}

	m := NewManager(st, svc, snap)
	m.setUser("u1")
	m.Load(context.Background())

	lists := st.Checklists()
	if len(lists) != 1 || lists[0].ID != "cached" {
		t.Fatalf("expected cached snapshot, got %d checklists", len(lists))
	}
	if st.Error() != "" {
		t.Error("load failures must not surface a store error")
	}
	if m.LastLoadError() == nil {
		t.Error("load failure should be recorded internally")
	}
}

func TestLoadFailureWithoutSnapshotYieldsEmpty(t *testing.T) {
	svc := &fakeService{failFetch: true}
	st := store.New()
	st.SetChecklists([]model.Checklist{{ID: "stale"}})

	m := NewManager(st, svc, nil)
	m.setUser("u1")
	m.Load(context.Background())

	if len(st.Checklists()) != 0 {
		t.Error("load failure without a snapshot must present an empty list")
	}
	if st.Error() != "" {
		t.Error("load failures must not surface a store error")
	}
}

func TestLoadSuccessWritesSnapshot(t *testing.T) {
	svc := &fakeService{fetchResult: []model.Checklist{{ID: "cl1", Title: "Fetched"}}}
	st := store.New()
	snap := newFakeSnapshots()

	m := NewManager(st, svc, snap)
	m.setUser("u1")
	m.Load(context.Background())

	if m.LastLoadError() != nil {
		t.Fatalf("unexpected load error: %v", m.LastLoadError())
	}
	if len(snap.saved["u1"]) != 1 {
		t.Error("successful load should write through to the snapshot")
	}
}

func TestWatchLoadsOnSignInClearsOnSignOut(t *testing.T) {
	svc := &fakeService{fetchResult: []model.Checklist{{ID: "cl1"}}}
	st := store.New()
	m := NewManager(st, svc, nil)

	n := session.NewNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan struct{})
	go func() {
		m.Watch(ctx, n)
		close(watchDone)
	}()

	n.SignIn(session.Session{UserID: "u1"})
	waitFor(t, func() bool { return len(st.Checklists()) == 1 })

	n.SignOut()
	waitFor(t, func() bool { return len(st.Checklists()) == 0 })

	cancel()
	<-watchDone
}

func TestCopyTemplateAddsChecklistAndClosesPicker(t *testing.T) {
	svc := &fakeService{}
	m, st := newTestManager(t, svc)
	st.SetShowTemplates(true)

	if err := m.CopyTemplate(context.Background(), "tpl1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lists := st.Checklists()
	if len(lists) != 1 || lists[0].ID != "copied" {
		t.Fatalf("expected the copied checklist, got %d checklists", len(lists))
	}
	if st.ShowTemplates() {
		t.Error("template picker should close after a successful copy")
	}
	if !st.IsExpanded("copied") {
		t.Error("copied checklist should be expanded")
	}
}

func TestCopyTemplateFailureSetsError(t *testing.T) {
	svc := &fakeService{failCreate: true}
	m, st := newTestManager(t, svc)

	if err := m.CopyTemplate(context.Background(), "tpl1"); err == nil {
		t.Fatal("expected failure")
	}
	if st.Error() == "" {
		t.Error("failed template copy should set the store error")
	}
	if len(st.Checklists()) != 0 {
		t.Error("no checklist may appear when the copy fails")
	}
}

// waitFor polls a condition driven by the Watch goroutine.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}
