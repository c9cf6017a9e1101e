package sortsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/ordering"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
)

// DefaultMaxHistory bounds the undo stack when no config value is supplied.
const DefaultMaxHistory = 50

// DragPhase tracks where a drag interaction currently stands.
type DragPhase string

const (
	DragIdle     DragPhase = "idle"
	DragActive   DragPhase = "dragging"
	DragDropped  DragPhase = "dropped"
	DragCanceled DragPhase = "cancelled"
)

// DragState is the explicit state machine replacing implicit drag callbacks.
// Valid transitions: idle -> dragging -> dropped|cancelled -> dragging.
// Dropped and cancelled keep the last drag's item (and drop target) until
// the next drag begins.
type DragState struct {
	Phase       DragPhase
	ItemID      uuid.UUID
	TargetIndex int
}

// Snapshot is an immutable point-in-time copy of the working order.
type Snapshot struct {
	Timestamp   time.Time
	Order       []ordering.Item
	Operation   enums.SortOperation
	Description string
}

// Session holds one admin's reorder workspace. All mutation goes through
// methods; the mutex makes each session single-writer.
type Session struct {
	mu sync.Mutex

	ID        uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time

	original  []ordering.Item
	current   []ordering.Item
	selection map[uuid.UUID]struct{}
	drag      DragState

	history    []Snapshot
	cursor     int
	maxHistory int

	saving    bool
	autoSave  bool
	lastError string
}

// NewSession seeds a session with the gallery's current order. The initial
// state becomes the first history entry so undo can always return to it.
func NewSession(id uuid.UUID, items []ordering.Item, ttl time.Duration, maxHistory int) *Session {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	now := time.Now()
	seq := ordering.Renumber(items)
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		original:   cloneItems(seq),
		current:    cloneItems(seq),
		selection:  make(map[uuid.UUID]struct{}),
		drag:       DragState{Phase: DragIdle},
		maxHistory: maxHistory,
	}
	s.history = []Snapshot{{
		Timestamp:   now,
		Order:       cloneItems(seq),
		Operation:   enums.SortOperationManual,
		Description: "initial order",
	}}
	s.cursor = 0
	return s
}

// State is a read-only copy of the session visible to handlers.
type State struct {
	ID             uuid.UUID
	Current        []ordering.Item
	Selection      []uuid.UUID
	Drag           DragState
	PendingChanges bool
	CanUndo        bool
	CanRedo        bool
	HistorySize    int
	IsSaving       bool
	AutoSave       bool
	LastError      string
	ExpiresAt      time.Time
}

// State returns a consistent snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	selection := make([]uuid.UUID, 0, len(s.selection))
	for _, item := range s.current {
		if _, ok := s.selection[item.ID]; ok {
			selection = append(selection, item.ID)
		}
	}
	return State{
		ID:             s.ID,
		Current:        cloneItems(s.current),
		Selection:      selection,
		Drag:           s.drag,
		PendingChanges: !ordersEqual(s.current, s.original),
		CanUndo:        s.cursor > 0,
		CanRedo:        s.cursor < len(s.history)-1,
		HistorySize:    len(s.history),
		IsSaving:       s.saving,
		AutoSave:       s.autoSave,
		LastError:      s.lastError,
		ExpiresAt:      s.ExpiresAt,
	}
}

// Expired reports whether the session TTL elapsed.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.ExpiresAt)
}

// Touch extends the session lifetime, called on every interaction.
func (s *Session) Touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExpiresAt = time.Now().Add(ttl)
}

// Apply runs an order operation over the current sequence, records a history
// snapshot, and discards any redo tail.
func (s *Session) Apply(op enums.SortOperation, description string, fn func([]ordering.Item) []ordering.Item) State {
	s.mu.Lock()
	s.current = fn(s.current)
	s.pushSnapshot(op, description)
	s.mu.Unlock()
	return s.State()
}

// UpdateOrder replaces the working order wholesale (bulk reorder payload).
func (s *Session) UpdateOrder(items []ordering.Item, description string) State {
	return s.Apply(enums.SortOperationManual, description, func([]ordering.Item) []ordering.Item {
		return ordering.Renumber(items)
	})
}

// Undo steps the cursor back one snapshot.
func (s *Session) Undo() (State, error) {
	s.mu.Lock()
	if s.cursor == 0 {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeConflict, "nothing to undo")
	}
	s.cursor--
	s.current = cloneItems(s.history[s.cursor].Order)
	s.mu.Unlock()
	return s.State(), nil
}

// Redo steps the cursor forward one snapshot.
func (s *Session) Redo() (State, error) {
	s.mu.Lock()
	if s.cursor >= len(s.history)-1 {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeConflict, "nothing to redo")
	}
	s.cursor++
	s.current = cloneItems(s.history[s.cursor].Order)
	s.mu.Unlock()
	return s.State(), nil
}

// ToggleSelect flips the selection state of one item.
func (s *Session) ToggleSelect(id uuid.UUID) State {
	s.mu.Lock()
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
	} else if s.contains(id) {
		s.selection[id] = struct{}{}
	}
	s.mu.Unlock()
	return s.State()
}

// SetSelection replaces the selection with the given ids; unknown ids drop.
func (s *Session) SetSelection(ids []uuid.UUID) State {
	s.mu.Lock()
	s.selection = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if s.contains(id) {
			s.selection[id] = struct{}{}
		}
	}
	s.mu.Unlock()
	return s.State()
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() State {
	s.mu.Lock()
	s.selection = make(map[uuid.UUID]struct{})
	s.mu.Unlock()
	return s.State()
}

// SelectedIDs returns the selection in current display order.
func (s *Session) SelectedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.selection))
	for _, item := range s.current {
		if _, ok := s.selection[item.ID]; ok {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// StartDrag begins a drag for the given item. Only valid from idle.
func (s *Session) StartDrag(itemID uuid.UUID) (State, error) {
	s.mu.Lock()
	if s.drag.Phase == DragActive {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeConflict, "a drag is already in progress")
	}
	if !s.contains(itemID) {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeNotFound, "item not in session")
	}
	s.drag = DragState{Phase: DragActive, ItemID: itemID}
	s.mu.Unlock()
	return s.State(), nil
}

// Drop completes the active drag at targetIndex, applies the move, and
// records history. The drag state keeps the item and target of the last
// drop until the next StartDrag so clients can animate the landing.
func (s *Session) Drop(targetIndex int) (State, error) {
	s.mu.Lock()
	if s.drag.Phase != DragActive {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeConflict, "no drag in progress")
	}
	itemID := s.drag.ItemID
	s.current = ordering.MoveItem(s.current, itemID, targetIndex)
	s.drag = DragState{Phase: DragDropped, ItemID: itemID, TargetIndex: targetIndex}
	s.pushSnapshot(enums.SortOperationDrag, fmt.Sprintf("moved item to position %d", targetIndex+1))
	s.mu.Unlock()
	return s.State(), nil
}

// CancelDrag abandons the active drag without changing the order.
func (s *Session) CancelDrag() (State, error) {
	s.mu.Lock()
	if s.drag.Phase != DragActive {
		s.mu.Unlock()
		return s.State(), pkgerrors.New(pkgerrors.CodeConflict, "no drag in progress")
	}
	s.drag = DragState{Phase: DragCanceled, ItemID: s.drag.ItemID}
	s.mu.Unlock()
	return s.State(), nil
}

// BeginSave acquires the per-session save slot. A second save while one is
// running is rejected so rapid-fire clicks cannot interleave writes.
func (s *Session) BeginSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return pkgerrors.New(pkgerrors.CodeConflict, "a save is already running for this session")
	}
	s.saving = true
	s.lastError = ""
	return nil
}

// FinishSave releases the save slot. On success the current order becomes
// the new baseline; on failure pending changes stay and the error is kept
// for the client to surface.
func (s *Session) FinishSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.original = cloneItems(s.current)
	s.lastError = ""
}

// SetAutoSave toggles automatic saving after each operation.
func (s *Session) SetAutoSave(enabled bool) {
	s.mu.Lock()
	s.autoSave = enabled
	s.mu.Unlock()
}

// CurrentOrder returns a copy of the working order.
func (s *Session) CurrentOrder() []ordering.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.current)
}

// History returns copies of the recorded snapshots, oldest first.
func (s *Session) History() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, len(s.history))
	for i, snap := range s.history {
		out[i] = Snapshot{
			Timestamp:   snap.Timestamp,
			Order:       cloneItems(snap.Order),
			Operation:   snap.Operation,
			Description: snap.Description,
		}
	}
	return out
}

// pushSnapshot must be called with the mutex held.
func (s *Session) pushSnapshot(op enums.SortOperation, description string) {
	// A new mutation after undo discards the redo tail.
	s.history = s.history[:s.cursor+1]
	s.history = append(s.history, Snapshot{
		Timestamp:   time.Now(),
		Order:       cloneItems(s.current),
		Operation:   op,
		Description: description,
	})
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.cursor = len(s.history) - 1
}

func (s *Session) contains(id uuid.UUID) bool {
	for _, item := range s.current {
		if item.ID == id {
			return true
		}
	}
	return false
}

func cloneItems(seq []ordering.Item) []ordering.Item {
	out := make([]ordering.Item, len(seq))
	copy(out, seq)
	return out
}

func ordersEqual(a, b []ordering.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
