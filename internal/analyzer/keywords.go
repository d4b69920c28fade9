package analyzer

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-ego/gse"
	"github.com/go-ego/gse/hmm/idf"
)

// Keyword 带权重的关键词。
type Keyword struct {
	Word   string
	Weight float64
}

// KeywordExtractor 统计式关键词抽取接口。
type KeywordExtractor interface {
	Extract(text string, topK int) []Keyword
}

// GseExtractor 基于 gse 分词与 TF-IDF 的关键词抽取实现。
type GseExtractor struct {
	tagger idf.TagExtracter
}

// NewGseExtractor 加载内置词典与 IDF 表，进程内只构建一次。
func NewGseExtractor() (*GseExtractor, error) {
	var seg gse.Segmenter
	if err := seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("load segmenter dict: %w", err)
	}

	g := &GseExtractor{}
	g.tagger.WithGse(seg)
	if err := g.tagger.LoadIdf(); err != nil {
		return nil, fmt.Errorf("load idf table: %w", err)
	}
	return g, nil
}

// Extract 返回按权重降序的前 topK 个关键词。
func (g *GseExtractor) Extract(text string, topK int) []Keyword {
	if text == "" || topK <= 0 {
		return nil
	}
	segments := g.tagger.ExtractTags(text, topK)
	keywords := make([]Keyword, 0, len(segments))
	for _, s := range segments {
		keywords = append(keywords, Keyword{Word: s.Text(), Weight: s.Weight()})
	}
	return keywords
}

// defaultStopwords 固定停用词表，来自站内高频噪声词与通用虚词。
var defaultStopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"的", "了", "是", "在", "我", "有", "和", "就", "不", "人", "都", "一", "个",
		"上", "也", "很", "到", "说", "要", "去", "你", "会", "着", "没有", "看",
		"好", "自己", "这", "哔哩", "bilibili", "B站", "视频", "观看", "点赞",
		"投币", "收藏", "分享", "弹幕", "评论", "关注", "UP主", "up主", "播放",
		"更新", "发布", "上传", "链接", "地址", "网站", "平台", "用户", "内容",
	} {
		defaultStopwords[w] = struct{}{}
	}
}

// filterKeywords 过滤停用词与单字词。
func filterKeywords(keywords []Keyword) []Keyword {
	filtered := make([]Keyword, 0, len(keywords))
	for _, kw := range keywords {
		if _, stop := defaultStopwords[kw.Word]; stop {
			continue
		}
		if utf8.RuneCountInString(kw.Word) < 2 {
			continue
		}
		filtered = append(filtered, kw)
	}
	return filtered
}

// truncateKeywords 截断到 n 个。
func truncateKeywords(keywords []Keyword, n int) []Keyword {
	if n >= 0 && len(keywords) > n {
		return keywords[:n]
	}
	return keywords
}

// keywordPairs 转为 [词, 权重] 对，供报告序列化。
func keywordPairs(keywords []Keyword) [][]any {
	pairs := make([][]any, 0, len(keywords))
	for _, kw := range keywords {
		pairs = append(pairs, []any{kw.Word, round3(kw.Weight)})
	}
	return pairs
}
