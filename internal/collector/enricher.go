package collector

import (
	"context"
	"strings"
	"time"

	"bili-radar/internal/client"
	"bili-radar/internal/config"
	"bili-radar/internal/model"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// ViewClient 抽象详情接口。
type ViewClient interface {
	View(ctx context.Context, bvid string) (*client.ViewDetail, error)
}

// Enricher 逐条拉取视频详情并覆盖搜索阶段的近似数据。
// 单条失败只计数并保留原记录，整体流程不中断。
type Enricher struct {
	client   ViewClient
	cfg      *config.Config
	logger   *logrus.Logger
	sleep    func(time.Duration)
	progress bool
}

// NewEnricher 创建增强器。
func NewEnricher(c ViewClient, cfg *config.Config, logger *logrus.Logger) *Enricher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Enricher{client: c, cfg: cfg, logger: logger, sleep: time.Sleep, progress: true}
}

// EnrichAll 增强全部记录，返回增强后的集合与失败条数。
// 上下文取消时提前返回已处理部分，剩余记录保持原样。
func (e *Enricher) EnrichAll(ctx context.Context, records []model.VideoRecord) ([]model.VideoRecord, int) {
	enriched := make([]model.VideoRecord, 0, len(records))
	failed := 0

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = progressbar.Default(int64(len(records)), "enrich")
		defer func() { _ = bar.Finish() }()
	}

	delay := e.cfg.RequestDelay()

	for i, rec := range records {
		if ctx.Err() != nil {
			e.logger.Warnf("enrichment interrupted at %d/%d", i, len(records))
			enriched = append(enriched, records[i:]...)
			break
		}

		if rec.Bvid == "" {
			enriched = append(enriched, rec)
			continue
		}

		detail, err := e.client.View(ctx, rec.Bvid)
		if err != nil {
			failed++
			e.logger.WithError(err).Warnf("enrich %s failed, keeping search data", rec.Bvid)
			enriched = append(enriched, rec)
		} else {
			applyDetail(&rec, detail)
			enriched = append(enriched, rec)
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if i < len(records)-1 {
			e.sleep(delay)
		}
	}

	e.logger.Infof("enrichment done: %d records, %d failed", len(enriched), failed)
	return enriched, failed
}

// applyDetail 用详情接口的权威值覆盖记录，响应中缺失的字段保留搜索阶段的值。
func applyDetail(rec *model.VideoRecord, d *client.ViewDetail) {
	// stat 块存在时整体覆盖计数（包括 0），缺失时保留搜索值
	if d.Stat != nil {
		rec.View = d.Stat.View.Int64()
		rec.Danmaku = d.Stat.Danmaku.Int64()
		rec.Reply = d.Stat.Reply.Int64()
		rec.Favorite = d.Stat.Favorite.Int64()
		rec.Coin = d.Stat.Coin.Int64()
		rec.Like = d.Stat.Like.Int64()
		rec.Share = d.Stat.Share.Int64()
	}
	if v := d.Duration.Int64(); v > 0 {
		rec.DurationSeconds = v
	}
	if v := d.Cid.Int64(); v > 0 {
		rec.Cid = v
	}
	if len(d.Pages) > 0 {
		rec.PartCount = int64(len(d.Pages))
	}
	if d.Owner.Name != "" {
		rec.Author = d.Owner.Name
	}
	if v := d.Owner.Mid.Int64(); v > 0 {
		rec.Mid = v
	}
	if d.Owner.Face != "" {
		rec.OwnerFace = d.Owner.Face
	}
	if d.Tname != "" {
		rec.TypeName = d.Tname
	}
	if v := d.Copyright.Int64(); v > 0 {
		rec.Copyright = v
	}
	if d.Desc != "" {
		rec.Description = d.Desc
	}
	if d.Dynamic != "" {
		rec.Dynamic = d.Dynamic
	}
	if d.Subtitle != nil && len(d.Subtitle.List) > 0 {
		langs := make([]string, 0, len(d.Subtitle.List))
		for _, s := range d.Subtitle.List {
			if s.LanDoc != "" {
				langs = append(langs, s.LanDoc)
			} else if s.Lan != "" {
				langs = append(langs, s.Lan)
			}
		}
		rec.Subtitle = strings.Join(langs, ",")
	}
	if len(d.Staff) > 0 {
		names := make([]string, 0, len(d.Staff))
		for _, s := range d.Staff {
			if s.Name != "" {
				names = append(names, s.Name)
			}
		}
		rec.Staff = strings.Join(names, ",")
	}
	if d.ArgueInfo != nil && d.ArgueInfo.ArgueMsg != "" {
		rec.ArgueMsg = d.ArgueInfo.ArgueMsg
	}
	if d.Honor != nil && len(d.Honor.Honor) > 0 {
		descs := make([]string, 0, len(d.Honor.Honor))
		for _, h := range d.Honor.Honor {
			if h.Desc != "" {
				descs = append(descs, h.Desc)
			}
		}
		rec.Honors = strings.Join(descs, ",")
	}
	rec.ClampCounters()
}
