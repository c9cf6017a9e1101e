package gallery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/ordering"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/sortsession"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
)

// SortOperationInput selects a bulk reorder operation inside a sort session.
// Selection-based operations act on the session's current selection.
type SortOperationInput struct {
	Operation enums.SortOperation
	Direction ordering.Direction
}

// StartSortSession snapshots the current gallery order into a new in-memory
// workspace. Nothing touches the database until the session is saved.
func (s *service) StartSortSession(ctx context.Context) (sortsession.State, error) {
	rows, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return sortsession.State{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing media")
	}
	items := make([]ordering.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, mediaToItem(row))
	}
	session := s.sessions.Create(items)
	s.logg.Info(s.logg.WithSortSessionID(ctx, session.ID.String()), "sort session started")
	return session.State(), nil
}

// GetSortSession returns the session state, refreshing its TTL.
func (s *service) GetSortSession(id uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.State(), nil
}

// SortSessionHistory lists the session's undo stack, oldest first.
func (s *service) SortSessionHistory(id uuid.UUID) ([]sortsession.Snapshot, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return session.History(), nil
}

// ApplySortOperation runs one of the bulk reorder operations against the
// session's working order and records it in history.
func (s *service) ApplySortOperation(ctx context.Context, id uuid.UUID, input SortOperationInput) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}

	dir := input.Direction
	if dir != ordering.Ascending && dir != ordering.Descending {
		dir = ordering.Ascending
	}

	var state sortsession.State
	switch input.Operation {
	case enums.SortOperationMoveToTop:
		selected := session.SelectedIDs()
		if len(selected) == 0 {
			return sortsession.State{}, pkgerrors.New(pkgerrors.CodeValidation, "no items selected")
		}
		state = session.Apply(input.Operation, "move selection to top", func(seq []ordering.Item) []ordering.Item {
			return ordering.MoveToTop(seq, selected)
		})
	case enums.SortOperationMoveToBottom:
		selected := session.SelectedIDs()
		if len(selected) == 0 {
			return sortsession.State{}, pkgerrors.New(pkgerrors.CodeValidation, "no items selected")
		}
		state = session.Apply(input.Operation, "move selection to bottom", func(seq []ordering.Item) []ordering.Item {
			return ordering.MoveToBottom(seq, selected)
		})
	case enums.SortOperationAlphabetical:
		state = session.Apply(input.Operation, "sort alphabetically "+string(dir), func(seq []ordering.Item) []ordering.Item {
			return ordering.SortAlphabetical(seq, dir)
		})
	case enums.SortOperationUploadDate:
		state = session.Apply(input.Operation, "sort by upload date "+string(dir), func(seq []ordering.Item) []ordering.Item {
			return ordering.SortByUploadDate(seq, dir)
		})
	case enums.SortOperationReset:
		state = session.Apply(input.Operation, "reset to upload order", ordering.ResetToUploadOrder)
	default:
		return sortsession.State{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort operation")
	}

	return s.maybeAutoSave(ctx, session, state)
}

// StartDrag begins a drag interaction for one item.
func (s *service) StartDrag(id, itemID uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.StartDrag(itemID)
}

// Drop completes the active drag at the target index.
func (s *service) Drop(ctx context.Context, id uuid.UUID, targetIndex int) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	state, err := session.Drop(targetIndex)
	if err != nil {
		return sortsession.State{}, err
	}
	return s.maybeAutoSave(ctx, session, state)
}

// CancelDrag abandons the active drag without touching the order.
func (s *service) CancelDrag(id uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.CancelDrag()
}

// Undo steps the session back one history entry.
func (s *service) Undo(id uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.Undo()
}

// Redo reapplies the last undone operation.
func (s *service) Redo(id uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.Redo()
}

// SetSelection replaces the session's selected item set.
func (s *service) SetSelection(id uuid.UUID, ids []uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	return session.SetSelection(ids), nil
}

// SetAutoSave toggles save-on-every-change for the session.
func (s *service) SetAutoSave(id uuid.UUID, enabled bool) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	session.SetAutoSave(enabled)
	return session.State(), nil
}

// SaveOrder persists the session's working order to the database. Only one
// save may run at a time; a failed save keeps the pending changes so the
// admin can retry.
func (s *service) SaveOrder(ctx context.Context, id uuid.UUID) (sortsession.State, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return sortsession.State{}, err
	}
	if err := session.BeginSave(); err != nil {
		return sortsession.State{}, err
	}
	saveErr := s.persistOrder(ctx, session.CurrentOrder())
	session.FinishSave(saveErr)
	if saveErr != nil {
		s.logg.Error(s.logg.WithSortSessionID(ctx, id.String()), "sort session save failed", saveErr)
		return session.State(), pkgerrors.Wrap(pkgerrors.CodeInternal, saveErr, "saving display order")
	}
	s.logg.Info(s.logg.WithSortSessionID(ctx, id.String()), "sort session saved")
	return session.State(), nil
}

// EndSortSession discards the session and any unsaved changes.
func (s *service) EndSortSession(id uuid.UUID) {
	s.sessions.Delete(id)
}

func (s *service) maybeAutoSave(ctx context.Context, session *sortsession.Session, state sortsession.State) (sortsession.State, error) {
	if !state.AutoSave {
		return state, nil
	}
	if err := session.BeginSave(); err != nil {
		// A save is already running; the change stays pending.
		return session.State(), nil
	}
	saveErr := s.persistOrder(ctx, session.CurrentOrder())
	session.FinishSave(saveErr)
	if saveErr != nil {
		s.logg.Error(s.logg.WithSortSessionID(ctx, session.ID.String()), "auto-save failed", saveErr)
	}
	return session.State(), nil
}

func mediaToItem(row models.Media) ordering.Item {
	uploaded := row.CreatedAt.Unix()
	if row.UploadedAt != nil {
		uploaded = row.UploadedAt.Unix()
	}
	return ordering.Item{
		ID:           row.ID,
		Name:         row.Title,
		DisplayOrder: row.DisplayOrder,
		UploadedAt:   uploaded,
	}
}

func (s *service) persistOrder(ctx context.Context, items []ordering.Item) error {
	orders := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		orders[item.ID] = i + 1
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateDisplayOrders(tx, orders)
	})
}
