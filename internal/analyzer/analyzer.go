package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"bili-radar/internal/config"
	"bili-radar/internal/model"

	"github.com/sirupsen/logrus"
)

// Analyzer 在增强后的记录集合上计算派生指标与聚合统计，不做任何网络 I/O。
type Analyzer struct {
	cfg       config.AnalysisConfig
	extractor KeywordExtractor
	scorer    *SentimentScorer
	logger    *logrus.Logger
}

// New 创建分析器。
func New(cfg config.AnalysisConfig, extractor KeywordExtractor, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{
		cfg:       cfg,
		extractor: extractor,
		scorer:    NewSentimentScorer(cfg.SentimentPositive, cfg.SentimentNegative),
		logger:    logger,
	}
}

// Preprocess 就地补全派生字段：时间分桶、参与度得分/互动率、情感分值与标签。
func (a *Analyzer) Preprocess(records []model.VideoRecord) []model.VideoRecord {
	for i := range records {
		rec := &records[i]
		rec.ClampCounters()

		if ts := rec.EffectiveTimestamp(); ts > 0 {
			t := time.Unix(ts, 0)
			rec.Year = t.Year()
			rec.Month = int(t.Month())
			rec.Quarter = (rec.Month-1)/3 + 1
		}

		rec.EngagementScore = float64(rec.Like*3 + rec.Coin*5 + rec.Favorite*4 + rec.Share*6 + rec.Reply*2)
		if rec.View > 0 {
			rec.EngagementRate = rec.EngagementScore / float64(rec.View) * 100
		} else {
			rec.EngagementRate = 0
		}

		rec.SentimentScore = a.scorer.Score(rec.Title)
		rec.Sentiment = a.scorer.Classify(rec.SentimentScore)
	}
	return records
}

// Report 生成完整分析报告。输出只包含 JSON 原生类型，可直接序列化。
func (a *Analyzer) Report(records []model.VideoRecord) map[string]any {
	a.logger.Infof("analyzing %d records", len(records))
	return map[string]any{
		"overview":            a.Overview(records),
		"time_trends":         a.TimeTrends(records),
		"content_themes":      a.ContentThemes(records),
		"sentiment_analysis":  a.SentimentAnalysis(records),
		"engagement_patterns": a.EngagementPatterns(records),
	}
}

// Overview 总览统计。
func (a *Analyzer) Overview(records []model.VideoRecord) map[string]any {
	var totalViews, totalEngagement int64
	rates := make([]float64, 0, len(records))
	minYear, maxYear := 0, 0
	for _, rec := range records {
		totalViews += rec.View
		totalEngagement += int64(rec.EngagementScore)
		rates = append(rates, rec.EngagementRate)
		if rec.Year > 0 {
			if minYear == 0 || rec.Year < minYear {
				minYear = rec.Year
			}
			if rec.Year > maxYear {
				maxYear = rec.Year
			}
		}
	}

	avgViews := 0.0
	if len(records) > 0 {
		avgViews = float64(totalViews) / float64(len(records))
	}

	return map[string]any{
		"total_videos":        len(records),
		"date_range":          fmt.Sprintf("%d - %d", minYear, maxYear),
		"total_views":         totalViews,
		"avg_views":           round2(avgViews),
		"total_engagement":    totalEngagement,
		"avg_engagement_rate": round3(mean(rates)),
	}
}

// TimeTrends 按年、季度、月聚合，键按日历周期升序（序列化时按字典序即为升序）。
func (a *Analyzer) TimeTrends(records []model.VideoRecord) map[string]any {
	yearly := map[string]any{}
	quarterly := map[string]any{}
	monthly := map[string]any{}

	records = withYear(records)
	byYear := groupBy(records, func(r model.VideoRecord) string {
		return fmt.Sprintf("%d", r.Year)
	})
	for key, group := range byYear {
		yearly[key] = map[string]any{
			"video_count":          len(group),
			"total_views":          sumViews(group),
			"avg_views":            round2(meanViews(group)),
			"avg_engagement_score": round2(meanOf(group, func(r model.VideoRecord) float64 { return r.EngagementScore })),
			"avg_engagement_rate":  round2(meanOf(group, func(r model.VideoRecord) float64 { return r.EngagementRate })),
		}
	}

	byQuarter := groupBy(records, func(r model.VideoRecord) string {
		return fmt.Sprintf("%d-Q%d", r.Year, r.Quarter)
	})
	for key, group := range byQuarter {
		quarterly[key] = map[string]any{
			"video_count":         len(group),
			"avg_views":           round2(meanViews(group)),
			"avg_engagement_rate": round2(meanOf(group, func(r model.VideoRecord) float64 { return r.EngagementRate })),
		}
	}

	byMonth := groupBy(records, func(r model.VideoRecord) string {
		return fmt.Sprintf("%d-%02d", r.Year, r.Month)
	})
	for key, group := range byMonth {
		monthly[key] = map[string]any{
			"video_count": len(group),
			"avg_views":   round2(meanViews(group)),
		}
	}

	return map[string]any{
		"yearly_trends":    yearly,
		"quarterly_trends": quarterly,
		"monthly_trends":   monthly,
	}
}

// ContentThemes 关键词、标签与作者聚合。
func (a *Analyzer) ContentThemes(records []model.VideoRecord) map[string]any {
	results := map[string]any{}

	corpus := joinText(records)
	top := filterKeywords(a.extract(corpus, a.cfg.TopKeywords))
	results["top_keywords"] = keywordPairs(truncateKeywords(top, a.cfg.TopKeywordsDisplay))

	yearlyKeywords := map[string]any{}
	for key, group := range groupBy(withYear(records), func(r model.VideoRecord) string { return fmt.Sprintf("%d", r.Year) }) {
		text := joinText(group)
		if strings.TrimSpace(text) == "" {
			continue
		}
		kws := filterKeywords(a.extract(text, a.cfg.YearKeywords))
		yearlyKeywords[key] = keywordPairs(truncateKeywords(kws, a.cfg.YearKeywordsDisplay))
	}
	results["yearly_keywords"] = yearlyKeywords

	// 标签频次：逗号拆分并去除首尾空白
	tagCounts := map[string]int{}
	for _, rec := range records {
		for _, tag := range strings.Split(rec.Tag, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tagCounts[tag]++
			}
		}
	}
	results["top_tags"] = topCountPairs(tagCounts, a.cfg.TopTags)

	// 作者榜：产量（most_active）与总播放量（most_influential）
	authorCount := map[string]int{}
	authorViews := map[string]int64{}
	authorScore := map[string]float64{}
	for _, rec := range records {
		if rec.Author == "" {
			continue
		}
		authorCount[rec.Author]++
		authorViews[rec.Author] += rec.View
		authorScore[rec.Author] += rec.EngagementScore
	}

	active := topCountPairs(authorCount, a.cfg.TopAuthors)
	results["most_active_authors"] = active

	viewCounts := make(map[string]int, len(authorViews))
	for name, v := range authorViews {
		viewCounts[name] = int(v)
	}
	results["most_influential_authors"] = topCountPairs(viewCounts, a.cfg.TopAuthors)

	topAuthors := map[string]any{}
	for _, pair := range active {
		name := pair[0].(string)
		count := authorCount[name]
		stats := map[string]any{
			"video_count": count,
			"total_views": authorViews[name],
		}
		if count > 0 {
			stats["avg_engagement_score"] = round2(authorScore[name] / float64(count))
		} else {
			stats["avg_engagement_score"] = 0.0
		}
		topAuthors[name] = stats
	}
	results["top_authors"] = topAuthors

	return results
}

// SentimentAnalysis 情感分布、年度变化、情感与参与度关系及正负面关键词。
func (a *Analyzer) SentimentAnalysis(records []model.VideoRecord) map[string]any {
	results := map[string]any{}

	dist := map[string]any{}
	for key, group := range groupBy(records, func(r model.VideoRecord) string { return r.Sentiment }) {
		dist[key] = len(group)
	}
	results["sentiment_distribution"] = dist

	// 年度情感占比，每年归一化到 100
	yearly := map[string]any{}
	for year, group := range groupBy(withYear(records), func(r model.VideoRecord) string { return fmt.Sprintf("%d", r.Year) }) {
		counts := map[string]int{}
		for _, rec := range group {
			counts[rec.Sentiment]++
		}
		pct := map[string]any{}
		for label, n := range counts {
			pct[label] = round2(float64(n) / float64(len(group)) * 100)
		}
		yearly[year] = pct
	}
	results["yearly_sentiment"] = yearly

	engagement := map[string]any{}
	for label, group := range groupBy(records, func(r model.VideoRecord) string { return r.Sentiment }) {
		engagement[label] = map[string]any{
			"avg_views":           round3(meanViews(group)),
			"avg_engagement_rate": round3(meanOf(group, func(r model.VideoRecord) float64 { return r.EngagementRate })),
			"avg_sentiment_score": round3(meanOf(group, func(r model.VideoRecord) float64 { return r.SentimentScore })),
		}
	}
	results["sentiment_engagement"] = engagement

	results["positive_keywords"] = a.labelKeywords(records, model.SentimentPositive)
	results["negative_keywords"] = a.labelKeywords(records, model.SentimentNegative)

	return results
}

// labelKeywords 在指定情感标签的标题集合上抽取关键词。
func (a *Analyzer) labelKeywords(records []model.VideoRecord, label string) []string {
	titles := make([]string, 0)
	for _, rec := range records {
		if rec.Sentiment == label && strings.TrimSpace(rec.Title) != "" {
			titles = append(titles, rec.Title)
		}
	}
	if len(titles) == 0 {
		return []string{}
	}
	kws := filterKeywords(a.extract(strings.Join(titles, " "), 20))
	words := make([]string, 0, len(kws))
	for _, kw := range kws {
		words = append(words, kw.Word)
	}
	return words
}

func (a *Analyzer) extract(text string, topK int) []Keyword {
	if a.extractor == nil {
		return nil
	}
	return a.extractor.Extract(text, topK)
}

// ---- 聚合辅助 ----

func groupBy(records []model.VideoRecord, key func(model.VideoRecord) string) map[string][]model.VideoRecord {
	groups := map[string][]model.VideoRecord{}
	for _, rec := range records {
		groups[key(rec)] = append(groups[key(rec)], rec)
	}
	return groups
}

// withYear 过滤掉无有效时间戳的记录，时间分桶只统计它们。
func withYear(records []model.VideoRecord) []model.VideoRecord {
	out := make([]model.VideoRecord, 0, len(records))
	for _, rec := range records {
		if rec.Year > 0 {
			out = append(out, rec)
		}
	}
	return out
}

func joinText(records []model.VideoRecord) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		parts = append(parts, rec.Title+" "+rec.Description)
	}
	return strings.Join(parts, " ")
}

func sumViews(records []model.VideoRecord) int64 {
	var total int64
	for _, rec := range records {
		total += rec.View
	}
	return total
}

func meanViews(records []model.VideoRecord) float64 {
	return meanOf(records, func(r model.VideoRecord) float64 { return float64(r.View) })
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

func meanOf(records []model.VideoRecord, f func(model.VideoRecord) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	var total float64
	for _, rec := range records {
		total += f(rec)
	}
	return total / float64(len(records))
}

// topCountPairs 按计数降序（同数按名称升序）取前 n 个 [名称, 计数] 对。
func topCountPairs(counts map[string]int, n int) [][]any {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	pairs := make([][]any, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, []any{e.name, e.count})
	}
	return pairs
}

func round2(v float64) float64 { return roundN(v, 100) }
func round3(v float64) float64 { return roundN(v, 1000) }

// roundN 四舍五入并清理 NaN/Inf，保证结果可被 JSON 序列化。
func roundN(v float64, factor float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*factor) / factor
}
