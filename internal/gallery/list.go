package gallery

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/pagination"
)

// PublicListParams filters the visitor-facing gallery. Only ready media is
// ever returned.
type PublicListParams struct {
	Category *enums.MediaCategory
	Featured *bool
	Limit    int
	Cursor   string
}

// AdminListParams filters the back-office gallery listing.
type AdminListParams struct {
	Category *enums.MediaCategory
	Status   *enums.MediaStatus
	Featured *bool
	Search   string
	Limit    int
	Cursor   string
}

// ListResult is one page of gallery items in display order.
type ListResult struct {
	Items      []MediaView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// ListPublic returns ready media in display order for the public site.
func (s *service) ListPublic(ctx context.Context, params PublicListParams) (*ListResult, error) {
	status := enums.MediaStatusReady
	filter := ListFilter{
		Category: params.Category,
		Status:   &status,
		Featured: params.Featured,
	}
	return s.listPage(ctx, filter, params.Limit, params.Cursor)
}

// ListAdmin returns media for the back office, any status.
func (s *service) ListAdmin(ctx context.Context, params AdminListParams) (*ListResult, error) {
	filter := ListFilter{
		Category: params.Category,
		Status:   params.Status,
		Featured: params.Featured,
		Search:   params.Search,
	}
	return s.listPage(ctx, filter, params.Limit, params.Cursor)
}

func (s *service) listPage(ctx context.Context, filter ListFilter, limit int, cursor string) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(limit)
	filter.Limit = pageSize + 1

	afterOrder, afterID, err := parseOrderCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.AfterOrder = afterOrder
	filter.AfterID = afterID

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing media")
	}

	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}

	result := &ListResult{
		Items:   make([]MediaView, 0, len(rows)),
		HasMore: hasMore,
	}
	for _, row := range rows {
		view, err := s.view(row)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *view)
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		result.NextCursor = encodeOrderCursor(last.DisplayOrder, last.ID)
	}
	return result, nil
}

// encodeOrderCursor packs the keyset position on (display_order, id).
func encodeOrderCursor(order int, id uuid.UUID) string {
	payload := fmt.Sprintf("%d|%s", order, id)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func parseOrderCursor(value string) (int, uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return 0, uuid.Nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return 0, uuid.Nil, fmt.Errorf("invalid cursor format")
	}
	order, err := strconv.Atoi(parts[0])
	if err != nil || order < 1 {
		return 0, uuid.Nil, fmt.Errorf("invalid cursor order")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return order, id, nil
}
