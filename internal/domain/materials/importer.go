package materials

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var importHeader = []interface{}{
	"company",
	"material_type",
	"paper_size",
	"running_meter",
	"rolls",
	"date", // YYYY-MM-DD, можно пусто
	"rack",
}

// ImportResult — итог загрузки Excel: созданные лоты и ошибки по строкам.
type ImportResult struct {
	Created []Lot          `json:"created"`
	Skipped []ImportRowErr `json:"skipped"`
}

type ImportRowErr struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// WriteImportTemplate пишет пустой шаблон для заполнения.
func WriteImportTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &importHeader); err != nil {
		return fmt.Errorf("template header: %w", err)
	}
	return f.Write(w)
}

// ImportLots читает xlsx (первый лист, строка 1 — заголовок) и создаёт
// по лоту на каждую строку. Ошибочные строки пропускаются и попадают в отчёт.
func (l *Ledger) ImportLots(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	res := &ImportResult{}
	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		in, err := parseImportRow(rows[i])
		if err != nil {
			res.Skipped = append(res.Skipped, ImportRowErr{Row: rowNum, Reason: err.Error()})
			continue
		}
		if in == nil {
			// пустая строка
			continue
		}
		lot, err := l.CreateLot(ctx, *in)
		if err != nil {
			res.Skipped = append(res.Skipped, ImportRowErr{Row: rowNum, Reason: err.Error()})
			continue
		}
		res.Created = append(res.Created, *lot)
	}
	l.log.Info("lots imported", "created", len(res.Created), "skipped", len(res.Skipped))
	return res, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseImportRow(row []string) (*NewLot, error) {
	blank := true
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			blank = false
			break
		}
	}
	if blank {
		return nil, nil
	}

	in := &NewLot{
		Company:      cell(row, 0),
		MaterialType: cell(row, 1),
		PaperSize:    cell(row, 2),
		Rack:         cell(row, 6),
	}
	var err error
	if in.RunningMeter, err = parseNumber(cell(row, 3)); err != nil {
		return nil, fmt.Errorf("running_meter: %w", err)
	}
	if in.Rolls, err = parseNumber(cell(row, 4)); err != nil {
		return nil, fmt.Errorf("rolls: %w", err)
	}
	if d := cell(row, 5); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		in.Date = t
	}
	return in, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
