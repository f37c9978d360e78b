// Package dataset ingests and validates the per-step input series.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"rl-rebalancer-go/internal/models"
)

// 支持的日期格式
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// Validate 检查记录序列：非空、排序键严格递增、分箱位于 [0,bins)、收益率有限。
func Validate(records []models.StepRecord, bins int) error {
	if len(records) == 0 {
		return &models.DataContractError{Index: -1, Reason: "series is empty"}
	}
	for i, r := range records {
		if err := ValidateRecord(r, bins); err != nil {
			return &models.DataContractError{Index: i, Reason: err.Error()}
		}
		if i > 0 {
			prev := records[i-1]
			if prev.Date.IsZero() != r.Date.IsZero() {
				return &models.DataContractError{Index: i, Reason: "records mix dated and undated ordering keys"}
			}
			if r.Key() <= prev.Key() {
				return &models.DataContractError{Index: i, Reason: "ordering key is not strictly increasing"}
			}
		}
	}
	return nil
}

// ValidateRecord 检查单条记录的分箱与收益率
func ValidateRecord(r models.StepRecord, bins int) error {
	if r.ForecastBin < 0 || r.ForecastBin >= bins {
		return fmt.Errorf("forecast bin %d outside [0,%d)", r.ForecastBin, bins)
	}
	if math.IsNaN(r.RealizedReturn) || math.IsInf(r.RealizedReturn, 0) {
		return fmt.Errorf("realized return %v is not finite", r.RealizedReturn)
	}
	return nil
}

// DistinctBins 返回数据中出现的分箱数量。若最大分箱号更大，则返回 max+1，保证每个出现的分箱都可寻址。
func DistinctBins(records []models.StepRecord) int {
	seen := make(map[int]struct{})
	highest := -1
	for _, r := range records {
		seen[r.ForecastBin] = struct{}{}
		if r.ForecastBin > highest {
			highest = r.ForecastBin
		}
	}
	if highest+1 > len(seen) {
		return highest + 1
	}
	return len(seen)
}

// ResolveBins 返回配置的分箱数量；未配置时从数据推导。
func ResolveBins(records []models.StepRecord, configured int) int {
	if configured > 0 {
		return configured
	}
	return DistinctBins(records)
}

// LoadCSV 从CSV文件读取输入序列。列通过表头名称定位。
// 若没有分箱列但提供了原始预测列，则使用前 CalibrationRows 行拟合分位数边界，并从序列中丢弃这些行。
func LoadCSV(path string, cfg models.DataConfig) ([]models.StepRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开数据文件: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("无法读取CSV记录: %w", err)
	}
	if len(rows) <= 1 { // 至少需要表头和一行数据
		return nil, &models.DataContractError{Index: -1, Reason: "data file is empty or only has a header"}
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	column := func(name string) (int, bool) {
		if name == "" {
			return -1, false
		}
		i, ok := header[name]
		return i, ok
	}

	retCol, ok := column(cfg.ReturnColumn)
	if !ok {
		return nil, fmt.Errorf("return column %q not found in header", cfg.ReturnColumn)
	}
	dateCol, hasDate := column(cfg.DateColumn)
	binCol, hasBin := column(cfg.BinColumn)
	fcCol, hasForecast := column(cfg.ForecastColumn)
	if !hasBin {
		if !hasForecast {
			return nil, fmt.Errorf("neither bin column %q nor forecast column %q found in header", cfg.BinColumn, cfg.ForecastColumn)
		}
		if cfg.DiscretizeToBins <= 0 || cfg.CalibrationRows <= 0 {
			return nil, fmt.Errorf("discretizing %q requires discretize_to_bins and calibration_rows", cfg.ForecastColumn)
		}
	}

	rows = rows[1:]
	records := make([]models.StepRecord, 0, len(rows))
	forecasts := make([]float64, 0, len(rows))
	for i, row := range rows {
		rec := models.StepRecord{Index: i}

		rec.RealizedReturn, err = parseFloat(row, retCol)
		if err != nil {
			return nil, &models.DataContractError{Index: i, Reason: "realized return: " + err.Error()}
		}
		if hasDate {
			rec.Date, rec.Index, err = parseKey(row, dateCol, i)
			if err != nil {
				return nil, &models.DataContractError{Index: i, Reason: "ordering key: " + err.Error()}
			}
		}
		if hasBin {
			bin, err := parseFloat(row, binCol)
			if err != nil {
				return nil, &models.DataContractError{Index: i, Reason: "forecast bin: " + err.Error()}
			}
			if bin != math.Trunc(bin) {
				return nil, &models.DataContractError{Index: i, Reason: fmt.Sprintf("forecast bin %v is not an integer", bin)}
			}
			rec.ForecastBin = int(bin)
		} else {
			fc, err := parseFloat(row, fcCol)
			if err != nil {
				return nil, &models.DataContractError{Index: i, Reason: "forecast: " + err.Error()}
			}
			forecasts = append(forecasts, fc)
		}
		records = append(records, rec)
	}

	if !hasBin {
		if len(records) <= cfg.CalibrationRows {
			return nil, &models.DataContractError{Index: -1, Reason: "no records remain after the calibration prefix"}
		}
		disc, err := FitQuantile(forecasts[:cfg.CalibrationRows], cfg.DiscretizeToBins)
		if err != nil {
			return nil, err
		}
		records = records[cfg.CalibrationRows:]
		for i := range records {
			records[i].ForecastBin = disc.Bin(forecasts[cfg.CalibrationRows+i])
		}
	}

	if err := Validate(records, math.MaxInt32); err != nil {
		return nil, err
	}
	return records, nil
}

func parseFloat(row []string, col int) (float64, error) {
	if col >= len(row) || strings.TrimSpace(row[col]) == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %v is not finite", v)
	}
	return v, nil
}

// parseKey 解析日期列；若该列是整数，则作为步序号使用。
func parseKey(row []string, col, fallback int) (time.Time, int, error) {
	if col >= len(row) || strings.TrimSpace(row[col]) == "" {
		return time.Time{}, fallback, fmt.Errorf("missing value")
	}
	raw := strings.TrimSpace(row[col])
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Time{}, n, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, fallback, nil
		}
	}
	return time.Time{}, fallback, fmt.Errorf("cannot parse %q as a date or step index", raw)
}
