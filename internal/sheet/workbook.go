// Package sheet reads monthly employee records from the bonus workbook, one
// worksheet per month.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/godilite/bonus-panel/internal/engine"
)

var (
	ErrSheetNotFound = errors.New("worksheet not found")
	ErrMissingColumn = errors.New("required column missing")
	ErrWorkbook      = errors.New("workbook unreadable")
)

// Workbook is a record source backed by an .xlsx file. The file is re-read on
// every call so edits show up without a restart.
type Workbook struct {
	path   string
	logger *zap.Logger
}

// Open checks that path is a readable workbook.
func Open(path string, logger *zap.Logger) (*Workbook, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkbook, path, err)
	}
	defer func() { _ = f.Close() }()

	logger.Info("Workbook opened",
		zap.String("path", path),
		zap.Strings("sheets", f.GetSheetList()),
	)
	return &Workbook{path: path, logger: logger}, nil
}

// Months lists the worksheet names, normalized.
func (w *Workbook) Months(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkbook, w.path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	months := make([]string, 0, len(sheets))
	for _, s := range sheets {
		months = append(months, engine.Normalize(s))
	}
	return months, nil
}

// MonthRecords reads the worksheet named after month.
func (w *Workbook) MonthRecords(ctx context.Context, month string) ([]engine.EmployeeMonthRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkbook, w.path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := readMonth(f, month)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("Month records read",
		zap.String("month", month),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// ReadAll reads every worksheet of a workbook stream, keyed by normalized
// month.
func ReadAll(r io.Reader) (map[string][]engine.EmployeeMonthRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string][]engine.EmployeeMonthRecord)
	for _, name := range f.GetSheetList() {
		records, err := readMonth(f, name)
		if err != nil {
			return nil, err
		}
		out[engine.Normalize(name)] = records
	}
	return out, nil
}

func readMonth(f *excelize.File, month string) ([]engine.EmployeeMonthRecord, error) {
	sheet := findSheet(f, month)
	if sheet == "" {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, month)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %v", ErrWorkbook, sheet, err)
	}
	records, err := ParseRows(month, rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	return records, nil
}

func findSheet(f *excelize.File, month string) string {
	want := Fold(month)
	for _, s := range f.GetSheetList() {
		if Fold(s) == want {
			return s
		}
	}
	return ""
}
