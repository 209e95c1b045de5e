package stock

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// порядок колонок общий для CSV и XLSX
var exportHeader = []string{
	"Date",
	"Paper Code",
	"Company",
	"Material Type",
	"Category",
	"Material In",
	"Used",
	"Waste",
	"LO",
	"WIP",
	"Available",
	"Source Job",
	"Source Stage",
}

const exportDateLayout = "02/01/2006"

func CSVFileName(now time.Time) string {
	return fmt.Sprintf("stock-report-%s.csv", now.Format(time.DateOnly))
}

func XLSXFileName(now time.Time) string {
	return fmt.Sprintf("stock-report-%s.xlsx", now.Format(time.DateOnly))
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func exportDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(exportDateLayout)
}

// WriteCSV пишет заголовок и все переданные строки (отфильтрованные, без
// разбиения на страницы). Поля с запятыми экранируются кавычками.
func WriteCSV(w io.Writer, rows []Row, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			exportDate(r.Date, loc),
			r.PaperCode,
			r.Company,
			r.MaterialType,
			string(r.Category),
			formatQty(r.MaterialIn),
			formatQty(r.Used),
			formatQty(r.Waste),
			formatQty(r.Leftover),
			formatQty(r.WIP),
			formatQty(r.Available),
			r.SourceJobCard,
			r.SourceStage,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv row %s: %w", r.PaperCode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX — то же в Excel, последней строкой идут итоги.
func WriteXLSX(w io.Writer, rows []Row, totals Totals, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Stock"
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	row := 2
	for _, r := range rows {
		excelRow := []interface{}{
			exportDate(r.Date, loc),
			r.PaperCode,
			r.Company,
			r.MaterialType,
			string(r.Category),
			r.MaterialIn,
			r.Used,
			r.Waste,
			r.Leftover,
			r.WIP,
			r.Available,
			r.SourceJobCard,
			r.SourceStage,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return fmt.Errorf("xlsx row %d: %w", row, err)
		}
		row++
	}

	totalRow := []interface{}{
		"Total", "", "", "", "",
		totals.MaterialIn.InexactFloat64(),
		totals.Used.InexactFloat64(),
		totals.Waste.InexactFloat64(),
		totals.Leftover.InexactFloat64(),
		totals.WIP.InexactFloat64(),
		totals.Available.InexactFloat64(),
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &totalRow); err != nil {
		return fmt.Errorf("xlsx totals: %w", err)
	}

	return f.Write(w)
}
