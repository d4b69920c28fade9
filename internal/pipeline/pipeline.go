package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"bili-radar/internal/analyzer"
	"bili-radar/internal/api"
	"bili-radar/internal/client"
	"bili-radar/internal/collector"
	"bili-radar/internal/config"
	"bili-radar/internal/model"
	"bili-radar/internal/storage"
	"bili-radar/internal/visualizer"
)

// Pipeline 串联采集、增强、分析与可视化四个阶段。
// 阶段之间只通过磁盘产物衔接，任何阶段都可以单独重跑。
type Pipeline struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *storage.Store
	client *client.Client
}

// New 组装流水线。
func New(cfg *config.Config, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		store:  storage.NewStore(cfg.Storage),
		client: client.New(cfg.API, nil, logger),
	}
}

// Collect 执行采集与增强阶段。增强产物已存在且未指定 force 时跳过，直接复用缓存。
func (p *Pipeline) Collect(ctx context.Context, force bool) error {
	if !force {
		if _, err := os.Stat(p.store.EnrichedPath()); err == nil {
			p.logger.Infof("enriched data exists at %s, skipping collection (use -force-recollect to override)", p.store.EnrichedPath())
			return nil
		}
	}

	col := collector.New(p.client, p.cfg, p.store, p.logger)
	records, err := col.CollectAll(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("collect: no videos matched the configured keywords and date range")
	}
	p.logger.Infof("collected %d videos across %d keywords", len(records), len(p.cfg.Keywords))

	enr := collector.NewEnricher(p.client, p.cfg, p.logger)
	enriched, failed := enr.EnrichAll(ctx, records)
	if failed > 0 {
		p.logger.Warnf("enrichment failed for %d of %d videos, keeping search-stage data for those", failed, len(records))
	}

	path, err := p.store.WriteEnrichedCSV(enriched)
	if err != nil {
		return fmt.Errorf("write enriched data: %w", err)
	}
	p.logger.Infof("enriched data saved to %s", path)
	return ctx.Err()
}

// Analyze 读取增强数据，计算派生指标并产出报告、CSV 与 Excel。
func (p *Pipeline) Analyze(ctx context.Context) error {
	records, err := p.store.ReadEnrichedCSV()
	if err != nil {
		return fmt.Errorf("read enriched data (run collect first): %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("enriched data is empty")
	}

	extractor, err := analyzer.NewGseExtractor()
	if err != nil {
		return fmt.Errorf("init keyword extractor: %w", err)
	}

	a := analyzer.New(p.cfg.Analysis, extractor, p.logger)
	analyzed := a.Preprocess(records)
	report := a.Report(analyzed)

	if err := ctx.Err(); err != nil {
		return err
	}

	csvPath, err := p.store.WriteAnalyzedCSV(analyzed)
	if err != nil {
		return fmt.Errorf("write analyzed data: %w", err)
	}
	p.logger.Infof("analyzed data saved to %s", csvPath)

	xlsxPath, err := p.store.WriteExcel(analyzed)
	if err != nil {
		return fmt.Errorf("write excel export: %w", err)
	}
	p.logger.Infof("excel export saved to %s", xlsxPath)

	reportPath, err := p.store.WriteReportJSON(report)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	p.logger.Infof("analysis report saved to %s, %d videos analyzed", reportPath, len(analyzed))
	return nil
}

// Visualize 基于已生成的报告渲染图表仪表板。
func (p *Pipeline) Visualize() error {
	report, err := p.store.ReadReportJSON()
	if err != nil {
		return fmt.Errorf("read report (run analyze first): %w", err)
	}
	vis := visualizer.New(p.logger)
	if _, err := vis.Render(report, p.cfg.ChartsDir()); err != nil {
		return err
	}
	return nil
}

// Full 按顺序执行全部阶段。
func (p *Pipeline) Full(ctx context.Context, force bool) error {
	if err := p.Collect(ctx, force); err != nil {
		return err
	}
	if err := p.Analyze(ctx); err != nil {
		return err
	}
	return p.Visualize()
}

// Serve 启动报表 HTTP 服务，阻塞到 ctx 取消。
func (p *Pipeline) Serve(ctx context.Context) error {
	handler := api.NewHandler(reportSource{store: p.store}, p.cfg.ChartsDir())
	srv := &http.Server{Addr: p.cfg.Server.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		p.logger.Infof("report server listening on %s", p.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// DryRun 打印执行计划而不发任何请求。
func (p *Pipeline) DryRun() error {
	if err := p.cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	p.logger.Infof("dry run: %d keywords, up to %d pages / %d results per keyword",
		len(p.cfg.Keywords), p.cfg.Collect.MaxPages, p.cfg.Collect.MaxResultsPerKeyword)
	p.logger.Infof("dry run: date window %s - %s",
		time.Unix(p.cfg.DateRange.StartTimestamp, 0).Format("2006-01-02"),
		time.Unix(p.cfg.DateRange.EndTimestamp, 0).Format("2006-01-02"))
	p.logger.Infof("dry run: request delay %s, order %q", p.cfg.RequestDelay(), p.cfg.Collect.Order)
	for _, kw := range p.cfg.Keywords {
		p.logger.Infof("dry run: would search keyword %q", kw)
	}
	p.logger.Infof("dry run: outputs under %s, %s, %s",
		p.cfg.Storage.RawDir, p.cfg.Storage.ProcessedDir, p.cfg.Storage.OutputDir)
	return nil
}

// reportSource 把磁盘产物适配成报表服务的数据源。
type reportSource struct {
	store *storage.Store
}

func (s reportSource) Report() (map[string]any, error) {
	return s.store.ReadReportJSON()
}

func (s reportSource) Videos(limit int) ([]model.VideoRecord, error) {
	records, err := s.store.ReadAnalyzedCSV()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
