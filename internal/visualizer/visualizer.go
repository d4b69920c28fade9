package visualizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/sirupsen/logrus"
)

// Visualizer 把分析报告渲染为单页 HTML 仪表板。
type Visualizer struct {
	logger *logrus.Logger
}

// New 创建可视化器。
func New(logger *logrus.Logger) *Visualizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Visualizer{logger: logger}
}

// Render 生成 chartsDir/dashboard.html，返回文件路径。
func (v *Visualizer) Render(report map[string]any, chartsDir string) (string, error) {
	path := filepath.Join(chartsDir, "dashboard.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dashboard %s: %w", path, err)
	}
	defer f.Close()

	if err := v.render(report, f); err != nil {
		return "", err
	}
	v.logger.Infof("dashboard saved to %s", path)
	return path, nil
}

func (v *Visualizer) render(report map[string]any, w io.Writer) error {
	page := components.NewPage()
	page.AddCharts(
		v.yearlyBar(report),
		v.monthlyLine(report),
		v.sentimentPie(report),
		v.keywordBar(report),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// yearlyBar 年度视频数量柱状图。
func (v *Visualizer) yearlyBar(report map[string]any) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "年度视频数量"}))

	yearly := asMap(asMap(report["time_trends"])["yearly_trends"])
	keys := sortedKeys(yearly)

	data := make([]opts.BarData, 0, len(keys))
	for _, key := range keys {
		data = append(data, opts.BarData{Value: asFloat(asMap(yearly[key])["video_count"])})
	}
	bar.SetXAxis(keys).AddSeries("视频数", data)
	return bar
}

// monthlyLine 月度平均播放量折线图。
func (v *Visualizer) monthlyLine(report map[string]any) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "月度平均播放量"}))

	monthly := asMap(asMap(report["time_trends"])["monthly_trends"])
	keys := sortedKeys(monthly)

	data := make([]opts.LineData, 0, len(keys))
	for _, key := range keys {
		data = append(data, opts.LineData{Value: asFloat(asMap(monthly[key])["avg_views"])})
	}
	line.SetXAxis(keys).AddSeries("平均播放量", data)
	return line
}

// sentimentPie 情感分布饼图。
func (v *Visualizer) sentimentPie(report map[string]any) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "情感分布"}))

	dist := asMap(asMap(report["sentiment_analysis"])["sentiment_distribution"])
	data := make([]opts.PieData, 0, len(dist))
	for _, label := range sortedKeys(dist) {
		data = append(data, opts.PieData{Name: label, Value: asFloat(dist[label])})
	}
	pie.AddSeries("sentiment", data)
	return pie
}

// keywordBar 热门关键词权重柱状图，最多取前 15 个。
func (v *Visualizer) keywordBar(report map[string]any) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "热门关键词"}))

	pairs, _ := asMap(report["content_themes"])["top_keywords"].([]any)
	if len(pairs) > 15 {
		pairs = pairs[:15]
	}

	words := make([]string, 0, len(pairs))
	data := make([]opts.BarData, 0, len(pairs))
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		word, _ := pair[0].(string)
		words = append(words, word)
		data = append(data, opts.BarData{Value: asFloat(pair[1])})
	}
	bar.SetXAxis(words).AddSeries("权重", data)
	return bar
}

func asMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
