package ordering

import (
	"sort"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Item is the minimal view of a gallery entry the order math needs.
type Item struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int
	UploadedAt   int64
}

// Direction selects ascending or descending sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Vietnamese titles need locale-aware comparison; a plain byte compare puts
// "Đ" after "z".
var collator = collate.New(language.Vietnamese, collate.IgnoreCase)

// MoveToTop places the selected items first, preserving relative order within
// both the selection and the remainder. Unknown ids are ignored.
func MoveToTop(seq []Item, ids []uuid.UUID) []Item {
	// Empty and single-item sequences come back untouched, display
	// orders included.
	if len(seq) <= 1 || len(ids) == 0 {
		return clone(seq)
	}
	selected, rest := partition(seq, ids)
	return Renumber(append(selected, rest...))
}

// MoveToBottom places the selected items last, preserving relative order.
func MoveToBottom(seq []Item, ids []uuid.UUID) []Item {
	if len(seq) <= 1 || len(ids) == 0 {
		return clone(seq)
	}
	selected, rest := partition(seq, ids)
	return Renumber(append(rest, selected...))
}

// SortAlphabetical orders items by name using Vietnamese collation,
// case-insensitive, stable for equal keys.
func SortAlphabetical(seq []Item, dir Direction) []Item {
	out := clone(seq)
	sort.SliceStable(out, func(i, j int) bool {
		cmp := collator.CompareString(out[i].Name, out[j].Name)
		if dir == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return Renumber(out)
}

// SortByUploadDate orders items by upload timestamp, id as tiebreak.
func SortByUploadDate(seq []Item, dir Direction) []Item {
	out := clone(seq)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UploadedAt != b.UploadedAt {
			if dir == Descending {
				return a.UploadedAt > b.UploadedAt
			}
			return a.UploadedAt < b.UploadedAt
		}
		return a.ID.String() < b.ID.String()
	})
	return Renumber(out)
}

// ResetToUploadOrder restores the original upload order (oldest first).
func ResetToUploadOrder(seq []Item) []Item {
	return SortByUploadDate(seq, Ascending)
}

// MoveItem relocates the dragged item to targetIndex. Indices refer to the
// sequence before removal, so a drop past the original position shifts back
// by one. Out-of-range targets clamp to the ends; an unknown id is a no-op.
func MoveItem(seq []Item, draggedID uuid.UUID, targetIndex int) []Item {
	out := clone(seq)
	from := -1
	for i, item := range out {
		if item.ID == draggedID {
			from = i
			break
		}
	}
	if from < 0 {
		return Renumber(out)
	}

	dragged := out[from]
	out = append(out[:from], out[from+1:]...)

	to := targetIndex
	if to > from {
		to--
	}
	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}

	out = append(out, Item{})
	copy(out[to+1:], out[to:])
	out[to] = dragged
	return Renumber(out)
}

// Renumber assigns sequential display orders starting at 1.
func Renumber(seq []Item) []Item {
	out := clone(seq)
	for i := range out {
		out[i].DisplayOrder = i + 1
	}
	return out
}

func partition(seq []Item, ids []uuid.UUID) (selected, rest []Item) {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, item := range seq {
		if _, ok := want[item.ID]; ok {
			selected = append(selected, item)
		} else {
			rest = append(rest, item)
		}
	}
	return selected, rest
}

func clone(seq []Item) []Item {
	out := make([]Item, len(seq))
	copy(out, seq)
	return out
}
