package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"bili-radar/internal/config"
	"bili-radar/internal/model"
)

func testCollectorConfig() *config.Config {
	cfg := config.Default()
	cfg.Keywords = []string{"执行力"}
	cfg.Collect.MaxPages = 3
	cfg.Collect.MaxResultsPerKeyword = 100
	cfg.Collect.RequestDelay = "0s"
	cfg.DateRange.StartTimestamp = 0
	cfg.DateRange.EndTimestamp = 1<<62 - 1
	return cfg
}

func newTestCollector(client SearchClient, cfg *config.Config, sink KeywordSink) *Collector {
	c := New(client, cfg, sink, nil)
	c.sleep = func(time.Duration) {}
	c.progress = false
	return c
}

func TestExtractRecordMapsSearchFields(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"bvid": "BV1aa",
		"aid": 100,
		"title": "如何提升<em class=\"keyword\">执行力</em>",
		"author": "flat_author",
		"owner": {"name": "真实UP主", "mid": 77},
		"description": "说明",
		"duration": "12:34",
		"pubdate": 1600000000,
		"play": "12000",
		"video_review": 30,
		"review": 15,
		"favorites": 40,
		"coins": 8,
		"like": 200,
		"share": 12,
		"tag": "职场,管理",
		"typeid": 201,
		"typename": "职场"
	}`)

	rec, err := ExtractRecord(raw, "执行力", 1700000000)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "如何提升执行力" {
		t.Fatalf("highlight markers must be stripped, got %q", rec.Title)
	}
	if rec.Author != "真实UP主" || rec.Mid != 77 {
		t.Fatalf("owner must take precedence, got author=%q mid=%d", rec.Author, rec.Mid)
	}
	if rec.DurationSeconds != 754 {
		t.Fatalf("duration: got %d, want 754", rec.DurationSeconds)
	}
	if rec.View != 12000 || rec.Danmaku != 30 || rec.Reply != 15 || rec.Favorite != 40 || rec.Coin != 8 {
		t.Fatalf("counter mapping wrong: %+v", rec)
	}
	if rec.SourceKeyword != "执行力" || rec.CollectedAt != 1700000000 {
		t.Fatalf("source fields wrong: %+v", rec)
	}
}

func TestExtractRecordDefaults(t *testing.T) {
	t.Parallel()

	rec, err := ExtractRecord(json.RawMessage(`{"bvid": "BV1aa"}`), "kw", 1)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.View != 0 || rec.Like != 0 || rec.DurationSeconds != 0 || rec.Author != "" {
		t.Fatalf("missing fields must default to zero values: %+v", rec)
	}
}

func TestExtractRecordFlatAuthorFallback(t *testing.T) {
	t.Parallel()

	rec, err := ExtractRecord(json.RawMessage(`{"bvid": "BV1aa", "author": "扁平作者", "mid": 9}`), "kw", 1)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Author != "扁平作者" || rec.Mid != 9 {
		t.Fatalf("expected flat author fallback, got author=%q mid=%d", rec.Author, rec.Mid)
	}
}

func TestExtractRecordMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ExtractRecord(json.RawMessage(`"just a string"`), "kw", 1); err == nil {
		t.Fatal("expected error for non-object item")
	}
}

func TestFilterByDateInclusive(t *testing.T) {
	t.Parallel()

	records := []model.VideoRecord{
		{Bvid: "before", Pubdate: 99},
		{Bvid: "start", Pubdate: 100},
		{Bvid: "inside", Pubdate: 150},
		{Bvid: "end", Pubdate: 200},
		{Bvid: "after", Pubdate: 201},
		{Bvid: "created-only", Created: 150},
	}

	got := FilterByDate(records, 100, 200)
	want := []string{"start", "inside", "end", "created-only"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, bvid := range want {
		if got[i].Bvid != bvid {
			t.Fatalf("at %d: got %q, want %q", i, got[i].Bvid, bvid)
		}
	}
}

func TestDedupKeepLast(t *testing.T) {
	t.Parallel()

	records := []model.VideoRecord{
		{Bvid: "BV1", View: 10, SourceKeyword: "执行力"},
		{Bvid: "BV2", View: 20},
		{Bvid: "BV1", View: 99, SourceKeyword: "团队执行力"},
	}

	got := DedupKeepLast(records)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique records, got %d", len(got))
	}
	// 后出现的记录覆盖，位置保持首次出现处
	if got[0].Bvid != "BV1" || got[0].View != 99 || got[0].SourceKeyword != "团队执行力" {
		t.Fatalf("expected last record to win in place, got %+v", got[0])
	}
	if got[1].Bvid != "BV2" {
		t.Fatalf("expected BV2 second, got %q", got[1].Bvid)
	}
}

func TestCollectKeywordStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{
		1: itemsPage("BV1", "BV2"),
		2: {},
	}}
	c := newTestCollector(cl, testCollectorConfig(), nil)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if cl.calls != 2 {
		t.Fatalf("expected 2 search calls, got %d", cl.calls)
	}
}

func TestCollectKeywordStopsAtMaxPages(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{
		1: itemsPage("BV1"),
		2: itemsPage("BV2"),
		3: itemsPage("BV3"),
		4: itemsPage("BV4"),
	}}
	cfg := testCollectorConfig()
	cfg.Collect.MaxPages = 3
	c := newTestCollector(cl, cfg, nil)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records from 3 pages, got %d", len(records))
	}
	if cl.calls != 3 {
		t.Fatalf("expected search stopped at page 3, got %d calls", cl.calls)
	}
}

func TestCollectKeywordStopsAtMaxResults(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{
		1: itemsPage("BV1", "BV2"),
		2: itemsPage("BV3", "BV4"),
		3: itemsPage("BV5", "BV6"),
	}}
	cfg := testCollectorConfig()
	cfg.Collect.MaxResultsPerKeyword = 3
	c := newTestCollector(cl, cfg, nil)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	// 第二页结束时已达上限，第三页不再请求
	if cl.calls != 2 {
		t.Fatalf("expected 2 search calls, got %d", cl.calls)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
}

func TestCollectKeywordStopsOnSearchError(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{
		1: itemsPage("BV1"),
	}, errPage: 2}
	c := newTestCollector(cl, testCollectorConfig(), nil)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	// 失败前已收到的页保留
	if len(records) != 1 {
		t.Fatalf("expected 1 record kept, got %d", len(records))
	}
}

func TestCollectAllContinuesAfterKeywordFailure(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{
		pages:      map[int][]json.RawMessage{1: itemsPage("BV1"), 2: {}},
		errKeyword: "执行力差",
	}
	cfg := testCollectorConfig()
	cfg.Keywords = []string{"执行力差", "执行力"}
	sink := &stubSink{}
	c := newTestCollector(cl, cfg, sink)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected records from surviving keyword, got %d", len(records))
	}
	if sink.keywordWrites != 1 {
		t.Fatalf("expected 1 keyword artifact, got %d", sink.keywordWrites)
	}
	if sink.mergedWrites != 1 {
		t.Fatalf("expected merged artifact written once, got %d", sink.mergedWrites)
	}
}

func TestCollectAllFatalOnSinkError(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{1: itemsPage("BV1"), 2: {}}}
	sink := &stubSink{keywordErr: errors.New("disk full")}
	c := newTestCollector(cl, testCollectorConfig(), sink)

	if _, err := c.CollectAll(context.Background()); err == nil {
		t.Fatal("expected fatal error on artifact write failure")
	}
}

func TestCollectAllAppliesDateWindow(t *testing.T) {
	t.Parallel()

	cl := &stubSearchClient{pages: map[int][]json.RawMessage{
		1: {
			json.RawMessage(`{"bvid": "old", "pubdate": 50}`),
			json.RawMessage(`{"bvid": "new", "pubdate": 150}`),
		},
		2: {},
	}}
	cfg := testCollectorConfig()
	cfg.DateRange.StartTimestamp = 100
	cfg.DateRange.EndTimestamp = 200
	c := newTestCollector(cl, cfg, nil)

	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(records) != 1 || records[0].Bvid != "new" {
		t.Fatalf("expected only in-window record, got %+v", records)
	}
}

// --- stubs ---

func itemsPage(bvids ...string) []json.RawMessage {
	items := make([]json.RawMessage, 0, len(bvids))
	for _, b := range bvids {
		items = append(items, json.RawMessage(fmt.Sprintf(`{"bvid": %q, "pubdate": 1600000000}`, b)))
	}
	return items
}

type stubSearchClient struct {
	pages      map[int][]json.RawMessage
	errPage    int
	errKeyword string
	calls      int
}

func (s *stubSearchClient) Search(_ context.Context, keyword string, page int, _ string) ([]json.RawMessage, error) {
	s.calls++
	if s.errKeyword != "" && keyword == s.errKeyword {
		return nil, errors.New("stub keyword failure")
	}
	if s.errPage != 0 && page == s.errPage {
		return nil, errors.New("stub page failure")
	}
	return s.pages[page], nil
}

type stubSink struct {
	keywordWrites int
	mergedWrites  int
	keywordErr    error
}

func (s *stubSink) WriteKeywordCSV(keyword string, records []model.VideoRecord) (string, error) {
	s.keywordWrites++
	return keyword + "_data.csv", s.keywordErr
}

func (s *stubSink) WriteMergedCSV(records []model.VideoRecord) (string, error) {
	s.mergedWrites++
	return "all_videos_data.csv", nil
}
