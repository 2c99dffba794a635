package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"aktis-collector-monday/internal/common"

	"github.com/ternarybob/arbor"
)

// fakeExecutor serves canned pages keyed by cursor; the first page uses "".
type fakeExecutor struct {
	pages     map[string]string
	failOn    string
	calls     []map[string]interface{}
	queries   []string
	errOnCall error
}

func (f *fakeExecutor) Execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	f.calls = append(f.calls, variables)
	f.queries = append(f.queries, query)

	cursor, _ := variables["cursor"].(string)
	if f.failOn != "" && cursor == f.failOn {
		return nil, f.errOnCall
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return json.RawMessage(page), nil
}

func firstPage(cursor string, ids ...string) string {
	return fmt.Sprintf(`{"boards":[{"id":"100","name":"Soporte","items_page":{"cursor":%s,"items":[%s]}}]}`,
		cursorJSON(cursor), itemsJSON(ids))
}

func nextPage(cursor string, ids ...string) string {
	return fmt.Sprintf(`{"next_items_page":{"cursor":%s,"items":[%s]}}`, cursorJSON(cursor), itemsJSON(ids))
}

func cursorJSON(cursor string) string {
	if cursor == "" {
		return "null"
	}
	return `"` + cursor + `"`
}

func itemsJSON(ids []string) string {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = fmt.Sprintf(`{"id":"%s","name":"Item %s","created_at":"2024-01-0%dT00:00:00Z","column_values":[`+
			`{"id":"status","type":"status","text":"Abierto","value":"{\"index\":1}","column":{"title":"Estado"}},`+
			`{"id":"person","type":"people","text":null,"value":null,"column":{"title":"Técnico"}}]}`, id, id, i%9+1)
	}
	return strings.Join(items, ",")
}

func newTestPaginator(executor *fakeExecutor, config *common.MondayConfig) *BoardPaginator {
	if config == nil {
		config = &common.MondayConfig{PageSize: 2, MissingBoard: common.MissingBoardEmpty}
	}
	return NewBoardPaginator(executor, config, arbor.NewLogger()).
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestFetchAll_DrainsEveryPageInOrder(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{
		"":   firstPage("c1", "1", "2"),
		"c1": nextPage("c2", "3", "4"),
		"c2": nextPage("", "5"),
	}}

	snapshot, err := newTestPaginator(executor, nil).FetchAll(context.Background(), "100")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if !snapshot.Found || snapshot.Name != "Soporte" || snapshot.ID != "100" {
		t.Errorf("snapshot header = %+v", snapshot)
	}

	var got []string
	for _, item := range snapshot.Items {
		got = append(got, item.ID)
	}
	if strings.Join(got, ",") != "1,2,3,4,5" {
		t.Errorf("item ids = %v, want 1..5 in server order", got)
	}

	if len(executor.calls) != 3 {
		t.Fatalf("executor called %d times, want 3", len(executor.calls))
	}
	if executor.calls[1]["cursor"] != "c1" || executor.calls[2]["cursor"] != "c2" {
		t.Errorf("cursors not consumed sequentially: %v", executor.calls)
	}
	if executor.calls[0]["limit"] != 2 {
		t.Errorf("limit = %v, want 2", executor.calls[0]["limit"])
	}
}

func TestFetchAll_DecodesColumns(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{"": firstPage("", "7")}}

	snapshot, err := newTestPaginator(executor, nil).FetchAll(context.Background(), "100")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	columns := snapshot.Items[0].Columns
	if len(columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(columns))
	}
	if columns[0].Title != "Estado" || columns[0].Text != "Abierto" || columns[0].Type != "status" {
		t.Errorf("status column = %+v", columns[0])
	}
	if columns[0].RawValue == nil {
		t.Error("status column raw value was not decoded")
	}
	if columns[1].Text != "" || columns[1].RawValue != nil {
		t.Errorf("null text and value must decode as empty: %+v", columns[1])
	}
}

func TestFetchAll_FailureDiscardsPartialResults(t *testing.T) {
	upstream := common.NewUpstreamError("graphql_errors", "complexity budget exhausted")
	executor := &fakeExecutor{
		pages: map[string]string{
			"":   firstPage("c1", "1", "2"),
			"c1": nextPage("c2", "3", "4"),
		},
		failOn:    "c1",
		errOnCall: upstream,
	}

	snapshot, err := newTestPaginator(executor, nil).FetchAll(context.Background(), "100")
	if err == nil {
		t.Fatal("FetchAll() succeeded, want error")
	}
	if snapshot != nil {
		t.Errorf("FetchAll() returned %d items alongside an error", len(snapshot.Items))
	}
	if !errors.Is(err, upstream) {
		t.Errorf("FetchAll() error = %v, want wrapped upstream error", err)
	}
	if !common.IsUpstream(err) {
		t.Errorf("error type = %q, want upstream", common.TypeOf(err))
	}
}

func TestFetchAll_DelayBetweenPagesOnly(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{
		"":   firstPage("c1", "1"),
		"c1": nextPage("c2", "2"),
		"c2": nextPage("", "3"),
	}}

	var slept []time.Duration
	var callsAtSleep []int
	paginator := NewBoardPaginator(executor, &common.MondayConfig{PageSize: 1, PageDelayMS: 250}, arbor.NewLogger()).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			callsAtSleep = append(callsAtSleep, len(executor.calls))
			return nil
		})

	if _, err := paginator.FetchAll(context.Background(), "100"); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2 for 3 pages", len(slept))
	}
	for i, d := range slept {
		if d != 250*time.Millisecond {
			t.Errorf("sleep %d = %v, want 250ms", i, d)
		}
	}
	if callsAtSleep[0] != 1 {
		t.Errorf("first sleep happened after %d requests, want 1", callsAtSleep[0])
	}
}

func TestFetchAll_CancelledBetweenPages(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{
		"":   firstPage("c1", "1"),
		"c1": nextPage("", "2"),
	}}

	paginator := NewBoardPaginator(executor, &common.MondayConfig{PageSize: 1}, arbor.NewLogger()).
		WithSleep(func(ctx context.Context, d time.Duration) error { return context.Canceled })

	snapshot, err := paginator.FetchAll(context.Background(), "100")
	if snapshot != nil || !common.IsTransport(err) {
		t.Errorf("FetchAll() = %v, %v; want nil snapshot and transport error", snapshot, err)
	}
	if len(executor.calls) != 1 {
		t.Errorf("executor called %d times after cancellation, want 1", len(executor.calls))
	}
}

func TestFetchAll_MissingBoard(t *testing.T) {
	pages := map[string]string{"": `{"boards":[]}`}

	snapshot, err := newTestPaginator(&fakeExecutor{pages: pages}, nil).FetchAll(context.Background(), "404")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if snapshot.Found || len(snapshot.Items) != 0 || snapshot.ID != "404" {
		t.Errorf("snapshot = %+v, want empty not-found board", snapshot)
	}

	strict := &common.MondayConfig{PageSize: 10, MissingBoard: common.MissingBoardError}
	_, err = newTestPaginator(&fakeExecutor{pages: pages}, strict).FetchAll(context.Background(), "404")
	if !common.HasCode(err, "board_not_found") {
		t.Errorf("FetchAll() error = %v, want board_not_found", err)
	}
}

func TestFetchAll_MissingNextPageIsUpstreamError(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{
		"":   firstPage("c1", "1"),
		"c1": `{"next_items_page":null}`,
	}}

	_, err := newTestPaginator(executor, nil).FetchAll(context.Background(), "100")
	if !common.HasCode(err, "board_page_missing") {
		t.Errorf("FetchAll() error = %v, want board_page_missing", err)
	}
}

func TestFetchAll_RecentLimitRequestsNewestFirst(t *testing.T) {
	executor := &fakeExecutor{pages: map[string]string{"": firstPage("", "1")}}

	config := &common.MondayConfig{PageSize: 50, RecentLimit: 10}
	if _, err := newTestPaginator(executor, config).FetchAll(context.Background(), "100"); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	params, ok := executor.calls[0]["queryParams"]
	if !ok {
		t.Fatal("queryParams missing from first page request")
	}
	encoded, _ := json.Marshal(params)
	if !strings.Contains(string(encoded), creationLogColumn) || !strings.Contains(string(encoded), `"desc"`) {
		t.Errorf("queryParams = %s, want creation log descending", encoded)
	}

	plain := &fakeExecutor{pages: map[string]string{"": firstPage("", "1")}}
	if _, err := newTestPaginator(plain, nil).FetchAll(context.Background(), "100"); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if _, ok := plain.calls[0]["queryParams"]; ok {
		t.Error("queryParams sent without a recent limit")
	}
}

func TestNewBoardPaginator_ClampsPageSize(t *testing.T) {
	for _, size := range []int{0, -3, 900} {
		p := NewBoardPaginator(&fakeExecutor{}, &common.MondayConfig{PageSize: size}, arbor.NewLogger())
		if p.pageSize != common.MaxPageSize {
			t.Errorf("page size %d clamped to %d, want %d", size, p.pageSize, common.MaxPageSize)
		}
	}
}
