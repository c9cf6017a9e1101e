package gallery

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/ordering"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
)

func seedGallery(t *testing.T) (*stubRepo, []models.Media) {
	t.Helper()
	rows := []models.Media{
		seedMedia("alpha", 1, enums.MediaStatusReady),
		seedMedia("beta", 2, enums.MediaStatusReady),
		seedMedia("gamma", 3, enums.MediaStatusReady),
	}
	return &stubRepo{rows: rows}, rows
}

func currentIDs(items []ordering.Item) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestSortSessionMoveSelectionToTop(t *testing.T) {
	repo, rows := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	if len(state.Current) != 3 {
		t.Fatalf("expected 3 items in session, got %d", len(state.Current))
	}

	if _, err := svc.SetSelection(state.ID, []uuid.UUID{rows[2].ID}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	state, err = svc.ApplySortOperation(context.Background(), state.ID, SortOperationInput{
		Operation: enums.SortOperationMoveToTop,
	})
	if err != nil {
		t.Fatalf("ApplySortOperation: %v", err)
	}

	ids := currentIDs(state.Current)
	if ids[0] != rows[2].ID || ids[1] != rows[0].ID || ids[2] != rows[1].ID {
		t.Fatalf("unexpected order after move to top: %v", ids)
	}
	if !state.PendingChanges {
		t.Fatalf("expected pending changes after reorder")
	}
	if repo.orders != nil {
		t.Fatalf("nothing should be persisted before save")
	}
}

func TestSortSessionMoveRequiresSelection(t *testing.T) {
	repo, _ := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	_, err = svc.ApplySortOperation(context.Background(), state.ID, SortOperationInput{
		Operation: enums.SortOperationMoveToBottom,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSortSessionDragDropAndUndo(t *testing.T) {
	repo, rows := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}

	if _, err := svc.StartDrag(state.ID, rows[0].ID); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	state, err = svc.Drop(context.Background(), state.ID, 3)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	ids := currentIDs(state.Current)
	if ids[0] != rows[1].ID || ids[1] != rows[2].ID || ids[2] != rows[0].ID {
		t.Fatalf("unexpected order after drop: %v", ids)
	}

	state, err = svc.Undo(state.ID)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	ids = currentIDs(state.Current)
	if ids[0] != rows[0].ID {
		t.Fatalf("undo should restore original order, got %v", ids)
	}

	state, err = svc.Redo(state.ID)
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	ids = currentIDs(state.Current)
	if ids[2] != rows[0].ID {
		t.Fatalf("redo should reapply the drag, got %v", ids)
	}
}

func TestSortSessionDropWithoutDragConflicts(t *testing.T) {
	repo, _ := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	_, err = svc.Drop(context.Background(), state.ID, 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSortSessionSavePersistsSequentialOrders(t *testing.T) {
	repo, rows := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	if _, err := svc.StartDrag(state.ID, rows[2].ID); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	if _, err := svc.Drop(context.Background(), state.ID, 0); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	state, err = svc.SaveOrder(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	if state.PendingChanges {
		t.Fatalf("save should clear pending changes")
	}
	if repo.orders[rows[2].ID] != 1 || repo.orders[rows[0].ID] != 2 || repo.orders[rows[1].ID] != 3 {
		t.Fatalf("unexpected persisted orders: %v", repo.orders)
	}
}

func TestSortSessionAutoSavePersistsOnDrop(t *testing.T) {
	repo, rows := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	if _, err := svc.SetAutoSave(state.ID, true); err != nil {
		t.Fatalf("SetAutoSave: %v", err)
	}
	if _, err := svc.StartDrag(state.ID, rows[1].ID); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	state, err = svc.Drop(context.Background(), state.ID, 0)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if state.PendingChanges {
		t.Fatalf("auto-save should clear pending changes")
	}
	if repo.orders[rows[1].ID] != 1 {
		t.Fatalf("auto-save should persist the new order: %v", repo.orders)
	}
}

func TestSortSessionAlphabeticalUsesVietnameseCollation(t *testing.T) {
	rows := []models.Media{
		seedMedia("x", 1, enums.MediaStatusReady),
		seedMedia("y", 2, enums.MediaStatusReady),
		seedMedia("z", 3, enums.MediaStatusReady),
	}
	rows[0].Title = "đám cưới"
	rows[1].Title = "ảnh cưới"
	rows[2].Title = "Ăn hỏi"
	repo := &stubRepo{rows: rows}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	state, err = svc.ApplySortOperation(context.Background(), state.ID, SortOperationInput{
		Operation: enums.SortOperationAlphabetical,
		Direction: ordering.Ascending,
	})
	if err != nil {
		t.Fatalf("ApplySortOperation: %v", err)
	}
	names := []string{state.Current[0].Name, state.Current[1].Name, state.Current[2].Name}
	want := []string{"ảnh cưới", "Ăn hỏi", "đám cưới"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q (full: %v)", i, want[i], names[i], names)
		}
	}
}

func TestSortSessionEndDiscardsSession(t *testing.T) {
	repo, _ := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	svc.EndSortSession(state.ID)
	_, err = svc.GetSortSession(state.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after end, got %v", err)
	}
}

func TestSortSessionHistoryRecordsOperations(t *testing.T) {
	repo, rows := seedGallery(t)
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	state, err := svc.StartSortSession(context.Background())
	if err != nil {
		t.Fatalf("StartSortSession: %v", err)
	}
	if _, err := svc.SetSelection(state.ID, []uuid.UUID{rows[0].ID}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if _, err := svc.ApplySortOperation(context.Background(), state.ID, SortOperationInput{
		Operation: enums.SortOperationMoveToBottom,
	}); err != nil {
		t.Fatalf("ApplySortOperation: %v", err)
	}

	history, err := svc.SortSessionHistory(state.ID)
	if err != nil {
		t.Fatalf("SortSessionHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected baseline plus one entry, got %d", len(history))
	}
	if history[1].Operation != enums.SortOperationMoveToBottom {
		t.Fatalf("unexpected operation in history: %s", history[1].Operation)
	}
}
