package analyzer

import (
	"strings"

	"bili-radar/internal/model"
)

// 内置情感词表。覆盖面有限，但对标题这类短文本足以给出粗粒度倾向。
var (
	positiveWords = []string{
		"优秀", "高效", "成功", "提升", "提高", "进步", "干货", "推荐", "必看",
		"实用", "学会", "掌握", "突破", "优化", "成长", "轻松", "清晰", "靠谱",
		"值得", "收获", "喜欢", "厉害", "精华", "好用", "满满", "惊艳", "棒", "赞",
	}
	negativeWords = []string{
		"失败", "拖延", "焦虑", "误区", "错误", "低效", "困难", "痛苦", "放弃",
		"迷茫", "浪费", "糟糕", "翻车", "吐槽", "警惕", "避雷", "内耗", "坑",
		"骗", "讨厌", "差劲", "烂",
	}
)

// SentimentScorer 基于词表的情感打分器，输出 [0,1] 区间分值，0.5 为中性。
type SentimentScorer struct {
	positiveCutoff float64
	negativeCutoff float64
}

// NewSentimentScorer 按阈值创建打分器。分类使用严格不等号：
// score > positiveCutoff 为 positive，score < negativeCutoff 为 negative，其余 neutral。
func NewSentimentScorer(positiveCutoff, negativeCutoff float64) *SentimentScorer {
	return &SentimentScorer{positiveCutoff: positiveCutoff, negativeCutoff: negativeCutoff}
}

// Score 对短文本打分。空文本与无词表命中时返回 0.5。
// 采用加一平滑的命中占比：(0.5 + pos) / (1 + pos + neg)，保证落在 (0,1) 内。
func (s *SentimentScorer) Score(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0.5
	}

	var pos, neg float64
	for _, w := range positiveWords {
		pos += float64(strings.Count(text, w))
	}
	for _, w := range negativeWords {
		neg += float64(strings.Count(text, w))
	}
	return (0.5 + pos) / (1 + pos + neg)
}

// Classify 将分值映射为标签，阈值边界本身归为 neutral。
func (s *SentimentScorer) Classify(score float64) string {
	switch {
	case score > s.positiveCutoff:
		return model.SentimentPositive
	case score < s.negativeCutoff:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
