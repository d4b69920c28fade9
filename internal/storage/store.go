package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bili-radar/internal/config"
	"bili-radar/internal/model"

	"github.com/gocarina/gocsv"
)

// 各阶段产物文件名。每个阶段整体消费上一个文件并整体产出下一个，文件级全量重写。
const (
	mergedFileName   = "all_videos_data.csv"
	enrichedFileName = "enhanced_videos_data.csv"
	analyzedFileName = "analyzed_data.csv"
	excelFileName    = "analyzed_data.xlsx"
	reportFileName   = "analysis_report.json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store 管理全部磁盘产物：CSV 表格、JSON 报告与 Excel 导出。
// CSV 带 UTF-8 BOM 写出（兼容 Excel 直开），读取时容忍有无 BOM。
type Store struct {
	rawDir       string
	processedDir string
	outputDir    string
}

// NewStore 按目录布局创建 Store。
func NewStore(cfg config.StorageConfig) *Store {
	return &Store{
		rawDir:       cfg.RawDir,
		processedDir: cfg.ProcessedDir,
		outputDir:    cfg.OutputDir,
	}
}

// EnrichedPath 增强数据文件路径，用于缓存检测。
func (s *Store) EnrichedPath() string {
	return filepath.Join(s.processedDir, enrichedFileName)
}

// ReportPath 报告文件路径。
func (s *Store) ReportPath() string {
	return filepath.Join(s.outputDir, reportFileName)
}

// WriteKeywordCSV 写单个关键词的阶段性产物，返回文件路径。
func (s *Store) WriteKeywordCSV(keyword string, records []model.VideoRecord) (string, error) {
	name := strings.ReplaceAll(keyword, " ", "_") + "_data.csv"
	path := filepath.Join(s.rawDir, name)
	return path, s.writeCSV(path, records)
}

// WriteMergedCSV 写去重合并后的完整原始数据。
func (s *Store) WriteMergedCSV(records []model.VideoRecord) (string, error) {
	path := filepath.Join(s.rawDir, mergedFileName)
	return path, s.writeCSV(path, records)
}

// WriteEnrichedCSV 写增强数据，独立于原始产物，便于单独重跑增强。
func (s *Store) WriteEnrichedCSV(records []model.VideoRecord) (string, error) {
	path := s.EnrichedPath()
	return path, s.writeCSV(path, records)
}

// ReadEnrichedCSV 读取增强数据。
func (s *Store) ReadEnrichedCSV() ([]model.VideoRecord, error) {
	return s.readCSV(s.EnrichedPath())
}

// WriteAnalyzedCSV 写含派生指标的最终数据。
func (s *Store) WriteAnalyzedCSV(records []model.VideoRecord) (string, error) {
	path := filepath.Join(s.outputDir, analyzedFileName)
	return path, s.writeCSV(path, records)
}

// ReadAnalyzedCSV 读取最终数据（报表服务用）。
func (s *Store) ReadAnalyzedCSV() ([]model.VideoRecord, error) {
	return s.readCSV(filepath.Join(s.outputDir, analyzedFileName))
}

// WriteReportJSON 写分析报告，两格缩进、不转义中文。
func (s *Store) WriteReportJSON(report map[string]any) (string, error) {
	path := s.ReportPath()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// ReadReportJSON 读取分析报告。
func (s *Store) ReadReportJSON() (map[string]any, error) {
	data, err := os.ReadFile(s.ReportPath())
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return report, nil
}

func (s *Store) writeCSV(path string, records []model.VideoRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	if err := gocsv.Marshal(&records, f); err != nil {
		return fmt.Errorf("marshal csv %s: %w", path, err)
	}
	return nil
}

func (s *Store) readCSV(path string) ([]model.VideoRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	records := make([]model.VideoRecord, 0)
	if err := gocsv.Unmarshal(bytes.NewReader(data), &records); err != nil {
		return nil, fmt.Errorf("unmarshal csv %s: %w", path, err)
	}
	return records, nil
}
