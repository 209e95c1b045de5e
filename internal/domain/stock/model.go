package stock

import (
	"time"

	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/shopspring/decimal"
)

// Row — строка сверки по одному лоту.
type Row struct {
	LotID         int64              `json:"lot_id"`
	Date          time.Time          `json:"date"`
	PaperCode     string             `json:"paper_code"`
	ProductCode   string             `json:"product_code"`
	Company       string             `json:"company"`
	MaterialType  string             `json:"material_type"`
	Category      materials.Category `json:"category"`
	JobName       string             `json:"job_name,omitempty"`
	MaterialIn    float64            `json:"material_in"`
	Used          float64            `json:"used"`
	Waste         float64            `json:"waste"`
	Leftover      float64            `json:"lo"`
	WIP           float64            `json:"wip"`
	Available     float64            `json:"available"`
	SourceJobCard string             `json:"source_job_card,omitempty"`
	SourceStage   string             `json:"source_stage,omitempty"`
	Active        bool               `json:"active"`
}

// Totals — суммы по отфильтрованным строкам. Считаются в decimal, чтобы
// итог не зависел от порядка сложения.
type Totals struct {
	Rows       int             `json:"rows"`
	MaterialIn decimal.Decimal `json:"material_in"`
	Used       decimal.Decimal `json:"used"`
	Waste      decimal.Decimal `json:"waste"`
	Leftover   decimal.Decimal `json:"lo"`
	WIP        decimal.Decimal `json:"wip"`
	Available  decimal.Decimal `json:"available"`
}

// Add учитывает ещё одну строку.
func (t *Totals) Add(r Row) {
	t.Rows++
	t.MaterialIn = t.MaterialIn.Add(decimal.NewFromFloat(r.MaterialIn))
	t.Used = t.Used.Add(decimal.NewFromFloat(r.Used))
	t.Waste = t.Waste.Add(decimal.NewFromFloat(r.Waste))
	t.Leftover = t.Leftover.Add(decimal.NewFromFloat(r.Leftover))
	t.WIP = t.WIP.Add(decimal.NewFromFloat(r.WIP))
	t.Available = t.Available.Add(decimal.NewFromFloat(r.Available))
}

func (t Totals) Equal(o Totals) bool {
	return t.Rows == o.Rows &&
		t.MaterialIn.Equal(o.MaterialIn) &&
		t.Used.Equal(o.Used) &&
		t.Waste.Equal(o.Waste) &&
		t.Leftover.Equal(o.Leftover) &&
		t.WIP.Equal(o.WIP) &&
		t.Available.Equal(o.Available)
}

func Summarize(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t.Add(r)
	}
	return t
}

// Page — ответ отчёта: страница строк, итоги по всему фильтру.
type Page struct {
	Rows       []Row  `json:"rows"`
	Totals     Totals `json:"totals"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	TotalRows  int    `json:"total_rows"`
}
