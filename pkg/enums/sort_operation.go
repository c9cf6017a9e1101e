package enums

import "fmt"

// SortOperation names a reorder action recorded in a sort session's history.
type SortOperation string

const (
	SortOperationMoveToTop    SortOperation = "move_to_top"
	SortOperationMoveToBottom SortOperation = "move_to_bottom"
	SortOperationAlphabetical SortOperation = "alphabetical"
	SortOperationUploadDate   SortOperation = "upload_date"
	SortOperationReset        SortOperation = "reset"
	SortOperationDrag         SortOperation = "drag"
	SortOperationManual       SortOperation = "manual"
)

var validSortOperations = []SortOperation{
	SortOperationMoveToTop,
	SortOperationMoveToBottom,
	SortOperationAlphabetical,
	SortOperationUploadDate,
	SortOperationReset,
	SortOperationDrag,
	SortOperationManual,
}

// String returns the literal string for the operation.
func (s SortOperation) String() string {
	return string(s)
}

// IsValid reports whether the operation is known.
func (s SortOperation) IsValid() bool {
	for _, candidate := range validSortOperations {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSortOperation converts raw input into a SortOperation.
func ParseSortOperation(value string) (SortOperation, error) {
	for _, candidate := range validSortOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort operation %q", value)
}
