package storage

import (
	"fmt"
	"path/filepath"
	"sort"

	"bili-radar/internal/model"

	"github.com/xuri/excelize/v2"
)

var excelHeaders = []string{
	"bvid", "title", "author", "year", "view", "danmaku", "reply",
	"favorite", "coin", "like", "share", "duration_seconds",
	"engagement_score", "engagement_rate", "sentiment_score", "sentiment",
	"search_keyword",
}

func excelRow(rec model.VideoRecord) []any {
	return []any{
		rec.Bvid, rec.Title, rec.Author, rec.Year, rec.View, rec.Danmaku, rec.Reply,
		rec.Favorite, rec.Coin, rec.Like, rec.Share, rec.DurationSeconds,
		rec.EngagementScore, rec.EngagementRate, rec.SentimentScore, rec.Sentiment,
		rec.SourceKeyword,
	}
}

// WriteExcel 导出分析结果：一个全量 sheet 加按年份拆分的 sheet。
func (s *Store) WriteExcel(records []model.VideoRecord) (string, error) {
	path := filepath.Join(s.outputDir, excelFileName)

	f := excelize.NewFile()
	defer f.Close()

	const allSheet = "all_data"
	if err := f.SetSheetName("Sheet1", allSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, allSheet, records); err != nil {
		return "", err
	}

	years := make([]int, 0)
	byYear := map[int][]model.VideoRecord{}
	for _, rec := range records {
		if rec.Year == 0 {
			continue
		}
		if _, ok := byYear[rec.Year]; !ok {
			years = append(years, rec.Year)
		}
		byYear[rec.Year] = append(byYear[rec.Year], rec)
	}
	sort.Ints(years)

	for _, year := range years {
		sheet := fmt.Sprintf("%d", year)
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("new sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, byYear[year]); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save excel %s: %w", path, err)
	}
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, records []model.VideoRecord) error {
	for col, header := range excelHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set header %s!%s: %w", sheet, cell, err)
		}
	}
	for i, rec := range records {
		for col, value := range excelRow(rec) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
