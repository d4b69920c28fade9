package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bili-radar/internal/config"
	"bili-radar/internal/model"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// 搜索结果标题中的高亮标记，按字面量移除，其余标记原样保留。
const (
	highlightOpen  = `<em class="keyword">`
	highlightClose = `</em>`
)

// SearchClient 抽象搜索接口，便于测试替换。
type SearchClient interface {
	Search(ctx context.Context, keyword string, page int, order string) ([]json.RawMessage, error)
}

// KeywordSink 接收采集过程中的阶段性产物。
type KeywordSink interface {
	WriteKeywordCSV(keyword string, records []model.VideoRecord) (string, error)
	WriteMergedCSV(records []model.VideoRecord) (string, error)
}

// Collector 驱动逐关键词分页采集：抽取、限速、时间过滤、去重与落盘。
type Collector struct {
	client   SearchClient
	cfg      *config.Config
	sink     KeywordSink
	logger   *logrus.Logger
	sleep    func(time.Duration)
	now      func() time.Time
	progress bool
}

// New 创建采集器，sink 为 nil 时不落盘（测试用）。
func New(client SearchClient, cfg *config.Config, sink KeywordSink, logger *logrus.Logger) *Collector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Collector{
		client:   client,
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
		sleep:    time.Sleep,
		now:      time.Now,
		progress: sink != nil,
	}
}

// CollectAll 依次采集全部关键词，对合并结果按 bvid 去重（保留后采集的记录）并落盘。
// 单个关键词失败只记录日志，不中断整体流程；文件写入失败视为致命错误。
func (c *Collector) CollectAll(ctx context.Context) ([]model.VideoRecord, error) {
	all := make([]model.VideoRecord, 0)

	for _, keyword := range c.cfg.Keywords {
		if ctx.Err() != nil {
			c.logger.Warn("collection interrupted, keeping partial artifacts")
			break
		}

		records, err := c.collectKeyword(ctx, keyword)
		if err != nil {
			c.logger.WithError(err).Errorf("collect keyword %q aborted", keyword)
			continue
		}

		records = FilterByDate(records, c.cfg.DateRange.StartTimestamp, c.cfg.DateRange.EndTimestamp)
		c.logger.Infof("keyword %q collected %d records in window", keyword, len(records))

		if len(records) > 0 && c.sink != nil {
			path, err := c.sink.WriteKeywordCSV(keyword, records)
			if err != nil {
				return nil, fmt.Errorf("write keyword artifact: %w", err)
			}
			c.logger.Infof("keyword %q saved to %s", keyword, path)
		}

		all = append(all, records...)
	}

	merged := DedupKeepLast(all)
	c.logger.Infof("collection done: %d records, %d unique", len(all), len(merged))

	if len(merged) > 0 && c.sink != nil {
		path, err := c.sink.WriteMergedCSV(merged)
		if err != nil {
			return nil, fmt.Errorf("write merged artifact: %w", err)
		}
		c.logger.Infof("merged data saved to %s", path)
	}

	return merged, nil
}

// collectKeyword 对单个关键词执行分页采集。
// 停止条件：空页、请求失败、page 超过 max_pages、累计数量达到 max_results_per_keyword。
// 页内 panic 恢复为错误返回，仅中止当前关键词。
func (c *Collector) collectKeyword(ctx context.Context, keyword string) (records []model.VideoRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var bar *progressbar.ProgressBar
	if c.progress {
		bar = progressbar.Default(-1, "collect "+keyword)
		defer func() { _ = bar.Finish() }()
	}

	delay := c.cfg.RequestDelay()

	for page := 1; page <= c.cfg.Collect.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		items, err := c.client.Search(ctx, keyword, page, c.cfg.Collect.Order)
		if err != nil {
			c.logger.WithError(err).Warnf("keyword %q page %d search failed, stopping keyword", keyword, page)
			break
		}
		if len(items) == 0 {
			c.logger.Infof("keyword %q page %d empty, keyword done", keyword, page)
			break
		}

		collectedAt := c.now().Unix()
		for _, item := range items {
			rec, err := ExtractRecord(item, keyword, collectedAt)
			if err != nil {
				c.logger.WithError(err).Debugf("keyword %q page %d skip malformed item", keyword, page)
				continue
			}
			records = append(records, rec)
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if len(records) >= c.cfg.Collect.MaxResultsPerKeyword {
			c.logger.Infof("keyword %q reached max results (%d)", keyword, len(records))
			break
		}
		if page < c.cfg.Collect.MaxPages {
			c.sleep(delay)
		}
	}

	return records, nil
}

// searchItem 搜索结果条目的原始结构。字段缺失时取零值，数字字段容忍字符串形式。
type searchItem struct {
	Bvid        string        `json:"bvid"`
	Aid         model.FlexInt `json:"aid"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Owner       *ownerInfo    `json:"owner"`
	Mid         model.FlexInt `json:"mid"`
	Description string        `json:"description"`
	Duration    string        `json:"duration"`
	Pubdate     model.FlexInt `json:"pubdate"`
	Created     model.FlexInt `json:"created"`
	Play        model.FlexInt `json:"play"`
	VideoReview model.FlexInt `json:"video_review"`
	Review      model.FlexInt `json:"review"`
	Favorites   model.FlexInt `json:"favorites"`
	Coins       model.FlexInt `json:"coins"`
	Like        model.FlexInt `json:"like"`
	Share       model.FlexInt `json:"share"`
	Tag         string        `json:"tag"`
	TypeID      model.FlexInt `json:"typeid"`
	TypeName    string        `json:"typename"`
	Pic         string        `json:"pic"`
	ArcURL      string        `json:"arcurl"`
}

type ownerInfo struct {
	Name string        `json:"name"`
	Mid  model.FlexInt `json:"mid"`
}

// ExtractRecord 将一条搜索结果映射为 VideoRecord。
// 映射表：play→View、video_review→Danmaku、review→Reply、favorites→Favorite、
// coins→Coin、like→Like、share→Share；作者优先取 owner.name，其次扁平 author 字段。
// 仅条目本身无法解析时返回错误，字段缺失一律取默认值。
func ExtractRecord(raw json.RawMessage, keyword string, collectedAt int64) (model.VideoRecord, error) {
	var item searchItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return model.VideoRecord{}, fmt.Errorf("unmarshal search item: %w", err)
	}

	author := item.Author
	mid := item.Mid.Int64()
	if item.Owner != nil && item.Owner.Name != "" {
		author = item.Owner.Name
		if item.Owner.Mid.Int64() != 0 {
			mid = item.Owner.Mid.Int64()
		}
	}

	rec := model.VideoRecord{
		Bvid:            item.Bvid,
		Aid:             item.Aid.Int64(),
		Title:           stripHighlight(item.Title),
		Author:          author,
		Mid:             mid,
		Description:     item.Description,
		DurationSeconds: model.ParseClockDuration(item.Duration),
		Pubdate:         item.Pubdate.Int64(),
		Created:         item.Created.Int64(),
		View:            item.Play.Int64(),
		Danmaku:         item.VideoReview.Int64(),
		Reply:           item.Review.Int64(),
		Favorite:        item.Favorites.Int64(),
		Coin:            item.Coins.Int64(),
		Like:            item.Like.Int64(),
		Share:           item.Share.Int64(),
		Tag:             item.Tag,
		TypeID:          item.TypeID.Int64(),
		TypeName:        item.TypeName,
		Pic:             item.Pic,
		ArcURL:          item.ArcURL,
		SourceKeyword:   keyword,
		CollectedAt:     collectedAt,
	}
	rec.ClampCounters()
	return rec, nil
}

func stripHighlight(title string) string {
	title = strings.ReplaceAll(title, highlightOpen, "")
	return strings.ReplaceAll(title, highlightClose, "")
}

// FilterByDate 保留有效时间戳落在 [start, end] 闭区间内的记录。
func FilterByDate(records []model.VideoRecord, start, end int64) []model.VideoRecord {
	filtered := make([]model.VideoRecord, 0, len(records))
	for _, rec := range records {
		ts := rec.EffectiveTimestamp()
		if ts >= start && ts <= end {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// DedupKeepLast 按 bvid 去重，遍历顺序靠后的记录覆盖靠前的，输出保持首次出现的相对顺序。
func DedupKeepLast(records []model.VideoRecord) []model.VideoRecord {
	index := make(map[string]int, len(records))
	result := make([]model.VideoRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.Bvid]; ok {
			result[i] = rec
			continue
		}
		index[rec.Bvid] = len(result)
		result = append(result, rec)
	}
	return result
}
