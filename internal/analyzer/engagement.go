package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"bili-radar/internal/model"

	"gonum.org/v1/gonum/stat"
)

// 时长分桶（分钟），最后一档开区间到正无穷。
var durationBins = []struct {
	label string
	min   float64
	max   float64
}{
	{"0-5min", 0, 5},
	{"5-15min", 5, 15},
	{"15-30min", 15, 30},
	{"30-60min", 30, 60},
	{"60min+", 60, -1},
}

// EngagementPatterns 参与度统计：各计数的均值/中位数/标准差、高参与度群体关键词、
// 年度参与度与可选的时长分桶。
func (a *Analyzer) EngagementPatterns(records []model.VideoRecord) map[string]any {
	results := map[string]any{}

	counters := map[string]func(model.VideoRecord) float64{
		"view":            func(r model.VideoRecord) float64 { return float64(r.View) },
		"like":            func(r model.VideoRecord) float64 { return float64(r.Like) },
		"coin":            func(r model.VideoRecord) float64 { return float64(r.Coin) },
		"favorite":        func(r model.VideoRecord) float64 { return float64(r.Favorite) },
		"share":           func(r model.VideoRecord) float64 { return float64(r.Share) },
		"reply":           func(r model.VideoRecord) float64 { return float64(r.Reply) },
		"engagement_rate": func(r model.VideoRecord) float64 { return r.EngagementRate },
	}

	engagementStats := map[string]any{}
	for name, f := range counters {
		xs := valuesOf(records, f)
		mean, median, std := describe(xs)
		engagementStats[name] = map[string]any{
			"mean":   round2(mean),
			"median": round2(median),
			"std":    round2(std),
		}
	}
	results["engagement_stats"] = engagementStats

	// 高参与度群体：互动率高于 80 分位的记录
	rates := valuesOf(records, func(r model.VideoRecord) float64 { return r.EngagementRate })
	if len(rates) > 0 {
		sorted := append([]float64(nil), rates...)
		sort.Float64s(sorted)
		cutoff := stat.Quantile(a.cfg.HighEngagementPct, stat.Empirical, sorted, nil)

		wordCounts := map[string]int{}
		for _, rec := range records {
			if rec.EngagementRate <= cutoff || strings.TrimSpace(rec.Title) == "" {
				continue
			}
			for _, kw := range filterKeywords(a.extract(rec.Title, 5)) {
				wordCounts[kw.Word]++
			}
		}
		results["high_engagement_keywords"] = topCountPairs(wordCounts, 20)
	}

	byYear := map[string]any{}
	for year, group := range groupBy(withYear(records), func(r model.VideoRecord) string { return fmt.Sprintf("%d", r.Year) }) {
		yearRates := valuesOf(group, func(r model.VideoRecord) float64 { return r.EngagementRate })
		mean, median, _ := describe(yearRates)
		byYear[year] = map[string]any{
			"avg_engagement_rate":    round2(mean),
			"median_engagement_rate": round2(median),
			"avg_views":              round2(meanViews(group)),
		}
	}
	results["engagement_by_year"] = byYear

	if bucketed := a.durationEngagement(records); len(bucketed) > 0 {
		results["duration_engagement"] = bucketed
	}

	return results
}

// durationEngagement 按时长分桶统计，集合中没有时长数据时返回空。
func (a *Analyzer) durationEngagement(records []model.VideoRecord) map[string]any {
	hasDuration := false
	for _, rec := range records {
		if rec.DurationSeconds > 0 {
			hasDuration = true
			break
		}
	}
	if !hasDuration {
		return nil
	}

	buckets := map[string][]model.VideoRecord{}
	for _, rec := range records {
		if rec.DurationSeconds <= 0 {
			continue
		}
		minutes := float64(rec.DurationSeconds) / 60
		for _, bin := range durationBins {
			if minutes > bin.min && (bin.max < 0 || minutes <= bin.max) {
				buckets[bin.label] = append(buckets[bin.label], rec)
				break
			}
		}
	}

	results := map[string]any{}
	for label, group := range buckets {
		results[label] = map[string]any{
			"video_count":         len(group),
			"avg_views":           round2(meanViews(group)),
			"avg_engagement_rate": round2(meanOf(group, func(r model.VideoRecord) float64 { return r.EngagementRate })),
		}
	}
	return results
}

func valuesOf(records []model.VideoRecord, f func(model.VideoRecord) float64) []float64 {
	xs := make([]float64, 0, len(records))
	for _, rec := range records {
		xs = append(xs, f(rec))
	}
	return xs
}

// describe 返回均值、中位数与样本标准差；空集与单元素的标准差记 0。
func describe(xs []float64) (mean, median, std float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	return mean, median, std
}
