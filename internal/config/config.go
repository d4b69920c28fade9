package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 全局配置，缺省值与内置默认一致，配置文件可部分覆盖。
type Config struct {
	API       APIConfig      `yaml:"api"`
	Keywords  []string       `yaml:"keywords"`
	DateRange DateRange      `yaml:"date_range"`
	Collect   CollectConfig  `yaml:"collect"`
	Analysis  AnalysisConfig `yaml:"analysis"`
	Storage   StorageConfig  `yaml:"storage"`
	Server    ServerConfig   `yaml:"server"`
}

// APIConfig 搜索与详情接口配置。
type APIConfig struct {
	SearchURL      string `yaml:"search_url"`
	ViewURL        string `yaml:"view_url"`
	UserAgent      string `yaml:"user_agent"`
	Referer        string `yaml:"referer"`
	Origin         string `yaml:"origin"`
	Cookie         string `yaml:"cookie"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DateRange 采集时间窗口（闭区间，Unix 秒）。
type DateRange struct {
	StartTimestamp int64 `yaml:"start_timestamp"`
	EndTimestamp   int64 `yaml:"end_timestamp"`
}

// CollectConfig 采集循环配置。
type CollectConfig struct {
	MaxPages             int    `yaml:"max_pages"`
	MaxResultsPerKeyword int    `yaml:"max_results_per_keyword"`
	RequestDelay         string `yaml:"request_delay"`
	Order                string `yaml:"order"`
}

// AnalysisConfig 分析阈值与截断参数。
type AnalysisConfig struct {
	SentimentPositive   float64 `yaml:"sentiment_positive"`
	SentimentNegative   float64 `yaml:"sentiment_negative"`
	TopKeywords         int     `yaml:"top_keywords"`
	TopKeywordsDisplay  int     `yaml:"top_keywords_display"`
	YearKeywords        int     `yaml:"year_keywords"`
	YearKeywordsDisplay int     `yaml:"year_keywords_display"`
	TopTags             int     `yaml:"top_tags"`
	TopAuthors          int     `yaml:"top_authors"`
	HighEngagementPct   float64 `yaml:"high_engagement_pct"`
}

// StorageConfig 产物目录布局。
type StorageConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	OutputDir    string `yaml:"output_dir"`
	LogsDir      string `yaml:"logs_dir"`
}

// ServerConfig 报表服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default 返回内置默认配置。
func Default() *Config {
	return &Config{
		API: APIConfig{
			SearchURL:      "https://api.bilibili.com/x/web-interface/search/all/v2",
			ViewURL:        "https://api.bilibili.com/x/web-interface/view",
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Referer:        "https://www.bilibili.com/",
			Origin:         "https://www.bilibili.com",
			TimeoutSeconds: 10,
		},
		Keywords: []string{
			"执行力", "执行力培训", "执行力管理", "团队执行力", "提高执行力",
			"执行力差", "执行力强", "执行力不足", "执行能力", "执行方法",
			"高效执行", "落地执行", "执行思维", "执行技巧", "执行文化",
		},
		DateRange: DateRange{
			StartTimestamp: 1546272000, // 2019-01-01
			EndTimestamp:   1767225600, // 2026-01-01
		},
		Collect: CollectConfig{
			MaxPages:             20,
			MaxResultsPerKeyword: 1000,
			RequestDelay:         "1s",
			Order:                "totalrank",
		},
		Analysis: AnalysisConfig{
			SentimentPositive:   0.6,
			SentimentNegative:   -0.1,
			TopKeywords:         100,
			TopKeywordsDisplay:  50,
			YearKeywords:        20,
			YearKeywordsDisplay: 10,
			TopTags:             30,
			TopAuthors:          20,
			HighEngagementPct:   0.8,
		},
		Storage: StorageConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			OutputDir:    "output",
			LogsDir:      "logs",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load 读取配置文件并套用默认值与环境变量覆盖。path 为空时依次取 CONFIG_FILE 与 config.yaml，
// 文件不存在时直接使用默认配置。
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env 可不存在

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// 敏感请求头优先取环境变量
	if v := os.Getenv("BILI_COOKIE"); v != "" {
		cfg.API.Cookie = v
	}
	if v := os.Getenv("BILI_USER_AGENT"); v != "" {
		cfg.API.UserAgent = v
	}

	cfg.applyFallbacks()
	return cfg, nil
}

func (c *Config) applyFallbacks() {
	def := Default()
	if c.API.SearchURL == "" {
		c.API.SearchURL = def.API.SearchURL
	}
	if c.API.ViewURL == "" {
		c.API.ViewURL = def.API.ViewURL
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = def.API.UserAgent
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = def.API.TimeoutSeconds
	}
	if len(c.Keywords) == 0 {
		c.Keywords = def.Keywords
	}
	if c.Collect.MaxPages <= 0 {
		c.Collect.MaxPages = def.Collect.MaxPages
	}
	if c.Collect.MaxResultsPerKeyword <= 0 {
		c.Collect.MaxResultsPerKeyword = def.Collect.MaxResultsPerKeyword
	}
	if c.Collect.RequestDelay == "" {
		c.Collect.RequestDelay = def.Collect.RequestDelay
	}
	if c.Collect.Order == "" {
		c.Collect.Order = def.Collect.Order
	}
	if c.Analysis.TopKeywords <= 0 {
		c.Analysis.TopKeywords = def.Analysis.TopKeywords
	}
	if c.Analysis.TopKeywordsDisplay <= 0 {
		c.Analysis.TopKeywordsDisplay = def.Analysis.TopKeywordsDisplay
	}
	if c.Analysis.YearKeywords <= 0 {
		c.Analysis.YearKeywords = def.Analysis.YearKeywords
	}
	if c.Analysis.YearKeywordsDisplay <= 0 {
		c.Analysis.YearKeywordsDisplay = def.Analysis.YearKeywordsDisplay
	}
	if c.Analysis.TopTags <= 0 {
		c.Analysis.TopTags = def.Analysis.TopTags
	}
	if c.Analysis.TopAuthors <= 0 {
		c.Analysis.TopAuthors = def.Analysis.TopAuthors
	}
	if c.Analysis.HighEngagementPct <= 0 || c.Analysis.HighEngagementPct >= 1 {
		c.Analysis.HighEngagementPct = def.Analysis.HighEngagementPct
	}
	if c.Analysis.SentimentPositive == 0 && c.Analysis.SentimentNegative == 0 {
		c.Analysis.SentimentPositive = def.Analysis.SentimentPositive
		c.Analysis.SentimentNegative = def.Analysis.SentimentNegative
	}
	if c.Storage.RawDir == "" {
		c.Storage.RawDir = def.Storage.RawDir
	}
	if c.Storage.ProcessedDir == "" {
		c.Storage.ProcessedDir = def.Storage.ProcessedDir
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = def.Storage.OutputDir
	}
	if c.Storage.LogsDir == "" {
		c.Storage.LogsDir = def.Storage.LogsDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.DateRange.StartTimestamp == 0 && c.DateRange.EndTimestamp == 0 {
		c.DateRange = def.DateRange
	}
}

// ApplyOutputDir 用命令行指定的目录覆盖输出位置。
func (c *Config) ApplyOutputDir(dir string) {
	if dir == "" {
		return
	}
	c.Storage.OutputDir = dir
}

// RequestDelay 返回请求间隔，解析失败时取 1 秒。
func (c *Config) RequestDelay() time.Duration {
	d, err := time.ParseDuration(c.Collect.RequestDelay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// Validate 校验配置，供 dry-run 与启动检查使用。
func (c *Config) Validate() error {
	if c.API.SearchURL == "" || c.API.ViewURL == "" {
		return fmt.Errorf("api urls must not be empty")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("at least one search keyword required")
	}
	if c.DateRange.StartTimestamp > c.DateRange.EndTimestamp {
		return fmt.Errorf("date range start %d after end %d", c.DateRange.StartTimestamp, c.DateRange.EndTimestamp)
	}
	if c.Collect.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be positive")
	}
	if c.Collect.MaxResultsPerKeyword <= 0 {
		return fmt.Errorf("max_results_per_keyword must be positive")
	}
	if _, err := time.ParseDuration(c.Collect.RequestDelay); err != nil {
		return fmt.Errorf("invalid request_delay %q: %w", c.Collect.RequestDelay, err)
	}
	if c.Analysis.SentimentNegative >= c.Analysis.SentimentPositive {
		return fmt.Errorf("sentiment thresholds inverted: negative %v >= positive %v", c.Analysis.SentimentNegative, c.Analysis.SentimentPositive)
	}
	for _, dir := range c.Dirs() {
		if dir == "" {
			return fmt.Errorf("storage directories must not be empty")
		}
	}
	return nil
}

// Dirs 返回全部产物目录。
func (c *Config) Dirs() []string {
	return []string{c.Storage.RawDir, c.Storage.ProcessedDir, c.Storage.OutputDir, c.ChartsDir(), c.Storage.LogsDir}
}

// ChartsDir 图表输出目录。
func (c *Config) ChartsDir() string {
	return filepath.Join(c.Storage.OutputDir, "charts")
}

// EnsureDirs 创建产物目录，失败视为致命错误。
func (c *Config) EnsureDirs() error {
	for _, dir := range c.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}
