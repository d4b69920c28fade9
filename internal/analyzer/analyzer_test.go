package analyzer

import (
	"encoding/json"
	"strings"
	"testing"

	"bili-radar/internal/config"
	"bili-radar/internal/model"
)

func testAnalysisConfig() config.AnalysisConfig {
	return config.Default().Analysis
}

func newTestAnalyzer() *Analyzer {
	return New(testAnalysisConfig(), &stubExtractor{}, nil)
}

func TestPreprocessEngagementScore(t *testing.T) {
	t.Parallel()

	records := []model.VideoRecord{{
		Bvid: "BV1", Title: "执行力", Pubdate: 1690000000, // 2023-07-22
		View: 100, Like: 10, Coin: 5, Favorite: 2, Share: 1, Reply: 3,
	}}

	got := newTestAnalyzer().Preprocess(records)[0]

	// 10*3 + 5*5 + 2*4 + 1*6 + 3*2 = 75
	if got.EngagementScore != 75 {
		t.Fatalf("engagement score: got %v, want 75", got.EngagementScore)
	}
	if got.EngagementRate != 75.0 {
		t.Fatalf("engagement rate: got %v, want 75.0", got.EngagementRate)
	}
	if got.Year != 2023 || got.Quarter != 3 {
		t.Fatalf("time buckets wrong: year=%d quarter=%d", got.Year, got.Quarter)
	}
	if got.Sentiment == "" {
		t.Fatal("sentiment label must be set")
	}
}

func TestPreprocessZeroViewsRate(t *testing.T) {
	t.Parallel()

	records := []model.VideoRecord{{Bvid: "BV1", View: 0, Like: 10}}
	got := newTestAnalyzer().Preprocess(records)[0]
	if got.EngagementRate != 0 {
		t.Fatalf("zero views must give rate 0, got %v", got.EngagementRate)
	}
	if got.EngagementScore != 30 {
		t.Fatalf("score must still be computed, got %v", got.EngagementScore)
	}
}

func TestPreprocessNoTimestampSkipsBuckets(t *testing.T) {
	t.Parallel()

	got := newTestAnalyzer().Preprocess([]model.VideoRecord{{Bvid: "BV1"}})[0]
	if got.Year != 0 || got.Month != 0 || got.Quarter != 0 {
		t.Fatalf("expected empty time buckets, got %d/%d/%d", got.Year, got.Month, got.Quarter)
	}
}

func TestSentimentScoreBounds(t *testing.T) {
	t.Parallel()

	s := NewSentimentScorer(0.6, -0.1)

	if got := s.Score(""); got != 0.5 {
		t.Fatalf("empty text: got %v, want 0.5", got)
	}
	if got := s.Score("没有命中词表的标题"); got != 0.5 {
		t.Fatalf("no hits: got %v, want 0.5", got)
	}
	if got := s.Score("高效提升执行力，干货推荐"); got <= 0.5 || got > 1 {
		t.Fatalf("positive text must score in (0.5, 1], got %v", got)
	}
	if got := s.Score("拖延又焦虑，彻底失败"); got >= 0.5 || got < 0 {
		t.Fatalf("negative text must score in [0, 0.5), got %v", got)
	}
}

func TestSentimentClassifyStrictBoundaries(t *testing.T) {
	t.Parallel()

	s := NewSentimentScorer(0.6, -0.1)

	cases := []struct {
		score float64
		want  string
	}{
		{0.65, model.SentimentPositive},
		{0.6, model.SentimentNeutral},  // 阈值本身不算
		{-0.1, model.SentimentNeutral}, // 阈值本身不算
		{0.3, model.SentimentNeutral},
		{-0.2, model.SentimentNegative},
	}
	for _, tc := range cases {
		if got := s.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", View: 100, Like: 10, Pubdate: 1578836800},  // 2020
		{Bvid: "BV2", View: 300, Like: 30, Pubdate: 1690000000},  // 2023
	})

	overview := a.Overview(records)
	if overview["total_videos"] != 2 {
		t.Fatalf("total_videos: %v", overview["total_videos"])
	}
	if overview["total_views"] != int64(400) {
		t.Fatalf("total_views: %v", overview["total_views"])
	}
	if overview["avg_views"] != 200.0 {
		t.Fatalf("avg_views: %v", overview["avg_views"])
	}
	if overview["date_range"] != "2020 - 2023" {
		t.Fatalf("date_range: %v", overview["date_range"])
	}
}

func TestTimeTrendsKeysAndYearFilter(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", View: 100, Pubdate: 1578836800}, // 2020-01
		{Bvid: "BV2", View: 200, Pubdate: 1694000000}, // 2023-09
		{Bvid: "BV3", View: 999},                      // 无时间戳，不参与时间分桶
	})

	trends := a.TimeTrends(records)
	yearly := trends["yearly_trends"].(map[string]any)
	if len(yearly) != 2 {
		t.Fatalf("expected 2 yearly buckets, got %v", yearly)
	}
	if _, ok := yearly["2020"]; !ok {
		t.Fatalf("missing 2020 bucket: %v", yearly)
	}

	quarterly := trends["quarterly_trends"].(map[string]any)
	if _, ok := quarterly["2023-Q3"]; !ok {
		t.Fatalf("missing 2023-Q3 bucket: %v", quarterly)
	}

	monthly := trends["monthly_trends"].(map[string]any)
	if _, ok := monthly["2020-01"]; !ok {
		t.Fatalf("missing 2020-01 bucket: %v", monthly)
	}
	bucket := monthly["2020-01"].(map[string]any)
	if bucket["video_count"] != 1 {
		t.Fatalf("2020-01 count: %v", bucket["video_count"])
	}
}

func TestContentThemesTagsAndAuthors(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", Author: "甲", View: 100, Tag: "职场, 管理"},
		{Bvid: "BV2", Author: "甲", View: 50, Tag: "职场"},
		{Bvid: "BV3", Author: "乙", View: 900, Tag: ""},
	})

	themes := a.ContentThemes(records)

	tags := themes["top_tags"].([][]any)
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", tags)
	}
	if tags[0][0] != "职场" || tags[0][1] != 2 {
		t.Fatalf("top tag wrong: %v", tags[0])
	}

	active := themes["most_active_authors"].([][]any)
	if active[0][0] != "甲" || active[0][1] != 2 {
		t.Fatalf("most active wrong: %v", active[0])
	}

	influential := themes["most_influential_authors"].([][]any)
	if influential[0][0] != "乙" || influential[0][1] != 900 {
		t.Fatalf("most influential wrong: %v", influential[0])
	}

	topAuthors := themes["top_authors"].(map[string]any)
	stats := topAuthors["甲"].(map[string]any)
	if stats["video_count"] != 2 || stats["total_views"] != int64(150) {
		t.Fatalf("author stats wrong: %v", stats)
	}
}

func TestSentimentAnalysisYearlyPercentages(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", Title: "高效提升，干货推荐，成功必看", Pubdate: 1690000000},
		{Bvid: "BV2", Title: "普通标题", Pubdate: 1690000000},
		{Bvid: "BV3", Title: "另一个普通标题", Pubdate: 1690000000},
	})

	sa := a.SentimentAnalysis(records)

	dist := sa["sentiment_distribution"].(map[string]any)
	total := 0
	for _, v := range dist {
		total += v.(int)
	}
	if total != 3 {
		t.Fatalf("distribution must cover all records, got %v", dist)
	}

	yearly := sa["yearly_sentiment"].(map[string]any)
	pcts := yearly["2023"].(map[string]any)
	var sum float64
	for _, v := range pcts {
		sum += v.(float64)
	}
	if sum < 99.9 || sum > 100.1 {
		t.Fatalf("yearly percentages must sum to ~100, got %v (%v)", sum, pcts)
	}
}

func TestEngagementPatternsStats(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", Title: "执行力方法", View: 100, Like: 50, Pubdate: 1690000000, DurationSeconds: 120},
		{Bvid: "BV2", Title: "执行力误区", View: 100, Like: 10, Pubdate: 1690000000, DurationSeconds: 1200},
		{Bvid: "BV3", Title: "执行力文化", View: 100, Like: 1, Pubdate: 1690000000, DurationSeconds: 4000},
	})

	patterns := a.EngagementPatterns(records)

	stats := patterns["engagement_stats"].(map[string]any)
	viewStats := stats["view"].(map[string]any)
	if viewStats["mean"] != 100.0 {
		t.Fatalf("view mean: %v", viewStats["mean"])
	}
	if viewStats["std"] != 0.0 {
		t.Fatalf("equal views must have std 0, got %v", viewStats["std"])
	}

	buckets := patterns["duration_engagement"].(map[string]any)
	if _, ok := buckets["0-5min"]; !ok {
		t.Fatalf("missing 0-5min bucket: %v", buckets)
	}
	if _, ok := buckets["15-30min"]; !ok {
		t.Fatalf("missing 15-30min bucket: %v", buckets)
	}
	if _, ok := buckets["60min+"]; !ok {
		t.Fatalf("missing 60min+ bucket: %v", buckets)
	}
}

func TestEngagementPatternsNoDurations(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	records := a.Preprocess([]model.VideoRecord{{Bvid: "BV1", View: 10}})

	patterns := a.EngagementPatterns(records)
	if _, ok := patterns["duration_engagement"]; ok {
		t.Fatal("duration buckets must be absent without duration data")
	}
}

func TestReportIsJSONSerializable(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	// 单条记录会让标准差等统计落入退化情形，报告仍须可序列化
	records := a.Preprocess([]model.VideoRecord{
		{Bvid: "BV1", Title: "执行力", View: 0, Pubdate: 1690000000},
	})

	report := a.Report(records)
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("report must marshal: %v", err)
	}
	for _, section := range []string{"overview", "time_trends", "content_themes", "sentiment_analysis", "engagement_patterns"} {
		if _, ok := report[section]; !ok {
			t.Fatalf("missing section %q", section)
		}
	}
	if !strings.Contains(string(data), "total_videos") {
		t.Fatal("serialized report missing overview fields")
	}
}

func TestFilterKeywords(t *testing.T) {
	t.Parallel()

	in := []Keyword{
		{Word: "执行力", Weight: 3},
		{Word: "的", Weight: 2},   // 停用词
		{Word: "棒", Weight: 1},   // 单字
		{Word: "视频", Weight: 1}, // 停用词
		{Word: "方法论", Weight: 0.5},
	}
	got := filterKeywords(in)
	if len(got) != 2 || got[0].Word != "执行力" || got[1].Word != "方法论" {
		t.Fatalf("unexpected filtered keywords: %v", got)
	}
}

// --- stubs ---

// stubExtractor 按空白切词并用词长当权重，避免测试加载真实词典。
type stubExtractor struct{}

func (stubExtractor) Extract(text string, topK int) []Keyword {
	seen := map[string]bool{}
	keywords := make([]Keyword, 0)
	for _, w := range strings.Fields(text) {
		if seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, Keyword{Word: w, Weight: float64(len(w))})
		if len(keywords) == topK {
			break
		}
	}
	return keywords
}
