package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	. "aktis-collector-monday/internal/common"
	. "aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/models"

	"github.com/ternarybob/arbor"
)

const itemFields = `
      cursor
      items {
        id
        name
        created_at
        updated_at
        column_values {
          id
          type
          text
          value
          column {
            title
          }
        }
      }`

const firstPageQuery = `query ($boardId: [ID!], $limit: Int!, $queryParams: ItemsQuery) {
  boards(ids: $boardId) {
    id
    name
    items_page(limit: $limit, query_params: $queryParams) {` + itemFields + `
    }
  }
}`

const nextPageQuery = `query ($limit: Int!, $cursor: String!) {
  next_items_page(limit: $limit, cursor: $cursor) {` + itemFields + `
  }
}`

// creationLogColumn is the pseudo column the board API sorts by creation time
const creationLogColumn = "__creation_log__"

type wireColumnValue struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Text   *string `json:"text"`
	Value  *string `json:"value"`
	Title  string  `json:"title"`
	Column *struct {
		Title string `json:"title"`
	} `json:"column"`
}

type wireItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	ColumnValues []wireColumnValue `json:"column_values"`
}

type wirePage struct {
	Cursor *string    `json:"cursor"`
	Items  []wireItem `json:"items"`
}

type firstPageResponse struct {
	Boards []struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		ItemsPage *wirePage `json:"items_page"`
	} `json:"boards"`
}

type nextPageResponse struct {
	NextItemsPage *wirePage `json:"next_items_page"`
}

// BoardPaginator drains a board's cursor-paginated items_page into one
// ordered snapshot. A failure on any page discards everything fetched so far.
type BoardPaginator struct {
	executor     GraphQLExecutor
	pageSize     int
	pageDelay    time.Duration
	missingBoard string
	recentFirst  bool
	logger       arbor.ILogger
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewBoardPaginator builds a paginator from the monday settings
func NewBoardPaginator(executor GraphQLExecutor, config *MondayConfig, logger arbor.ILogger) *BoardPaginator {
	pageSize := config.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	missingBoard := config.MissingBoard
	if missingBoard == "" {
		missingBoard = MissingBoardEmpty
	}

	return &BoardPaginator{
		executor:     executor,
		pageSize:     pageSize,
		pageDelay:    time.Duration(config.PageDelayMS) * time.Millisecond,
		missingBoard: missingBoard,
		recentFirst:  config.RecentLimit > 0,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// WithSleep replaces the inter-page wait, used by tests to observe delays
func (p *BoardPaginator) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *BoardPaginator {
	p.sleep = sleep
	return p
}

// FetchAll returns every item of the board in server order. The inter-page
// delay is applied before each request after the first.
func (p *BoardPaginator) FetchAll(ctx context.Context, boardID string) (*models.BoardSnapshot, error) {
	started := time.Now()

	variables := map[string]interface{}{
		"boardId": []string{boardID},
		"limit":   p.pageSize,
	}
	if p.recentFirst {
		variables["queryParams"] = map[string]interface{}{
			"order_by": []map[string]interface{}{
				{"column_id": creationLogColumn, "direction": "desc"},
			},
		}
	}

	data, err := p.executor.Execute(ctx, firstPageQuery, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page of board %s: %w", boardID, err)
	}

	var first firstPageResponse
	if err := json.Unmarshal(data, &first); err != nil {
		return nil, NewUpstreamError("board_page_decode", "failed to decode first page").
			WithContext("board_id", boardID).
			WithCause(err)
	}

	if len(first.Boards) == 0 {
		if p.missingBoard == MissingBoardError {
			return nil, NewUpstreamError("board_not_found", fmt.Sprintf("board %s was not returned by the board API", boardID))
		}
		p.logger.Warn().Str("board_id", boardID).Msg("Board not found, treating as empty")
		return &models.BoardSnapshot{ID: boardID, Found: false, Items: []models.RawItem{}}, nil
	}

	board := first.Boards[0]
	snapshot := &models.BoardSnapshot{
		ID:    board.ID,
		Name:  board.Name,
		Found: true,
		Items: []models.RawItem{},
	}
	if snapshot.ID == "" {
		snapshot.ID = boardID
	}

	page := board.ItemsPage
	if page == nil {
		page = &wirePage{}
	}
	pages := 1
	snapshot.Items = appendItems(snapshot.Items, page.Items)
	p.logger.Debug().Str("board_id", boardID).Int("page", pages).Int("items", len(page.Items)).Msg("Fetched board page")

	for hasCursor(page.Cursor) {
		if err := p.sleep(ctx, p.pageDelay); err != nil {
			return nil, NewTransportError("board_fetch_cancelled", "board fetch cancelled between pages").WithCause(err)
		}

		data, err := p.executor.Execute(ctx, nextPageQuery, map[string]interface{}{
			"limit":  p.pageSize,
			"cursor": *page.Cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of board %s: %w", pages+1, boardID, err)
		}

		var next nextPageResponse
		if err := json.Unmarshal(data, &next); err != nil {
			return nil, NewUpstreamError("board_page_decode", fmt.Sprintf("failed to decode page %d", pages+1)).
				WithContext("board_id", boardID).
				WithCause(err)
		}
		if next.NextItemsPage == nil {
			return nil, NewUpstreamError("board_page_missing", fmt.Sprintf("page %d has no next_items_page member", pages+1)).
				WithContext("board_id", boardID)
		}

		page = next.NextItemsPage
		pages++
		snapshot.Items = appendItems(snapshot.Items, page.Items)
		p.logger.Debug().Str("board_id", boardID).Int("page", pages).Int("items", len(page.Items)).Msg("Fetched board page")
	}

	p.logger.Info().
		Str("board_id", boardID).
		Int("pages", pages).
		Int("items", len(snapshot.Items)).
		Dur("duration", time.Since(started)).
		Msg("Board fetch complete")

	return snapshot, nil
}

func hasCursor(cursor *string) bool {
	return cursor != nil && *cursor != ""
}

func appendItems(items []models.RawItem, page []wireItem) []models.RawItem {
	for _, wi := range page {
		item := models.RawItem{
			ID:        wi.ID,
			Name:      wi.Name,
			CreatedAt: wi.CreatedAt,
			UpdatedAt: wi.UpdatedAt,
			Columns:   make([]models.ColumnValue, 0, len(wi.ColumnValues)),
		}
		for _, wc := range wi.ColumnValues {
			column := models.ColumnValue{
				ID:       wc.ID,
				Title:    wc.Title,
				Type:     wc.Type,
				RawValue: models.DecodeRawValue(wc.Value),
			}
			if wc.Column != nil && wc.Column.Title != "" {
				column.Title = wc.Column.Title
			}
			if wc.Text != nil {
				column.Text = *wc.Text
			}
			item.Columns = append(item.Columns, column)
		}
		items = append(items, item)
	}
	return items
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
