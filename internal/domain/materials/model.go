package materials

import (
	"errors"
	"time"
)

type Category string

const (
	CategoryRaw      Category = "RAW"
	CategoryLeftover Category = "LO"  // обрезки, пригодные к повторному использованию
	CategoryWIP      Category = "WIP" // полуфабрикат после одной из стадий
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRaw, CategoryLeftover, CategoryWIP:
		return true
	}
	return false
}

// ParseCategory принимает и короткие, и длинные названия.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "RAW", "raw":
		return CategoryRaw, true
	case "LO", "lo", "LEFTOVER", "leftover":
		return CategoryLeftover, true
	case "WIP", "wip", "WORK_IN_PROGRESS", "work_in_progress":
		return CategoryWIP, true
	}
	return "", false
}

var (
	ErrCompanyRequired   = errors.New("materials: company is required")
	ErrUnknownCompany    = errors.New("materials: company or material type not in catalog")
	ErrInvalidQuantity   = errors.New("materials: quantity must be > 0")
	ErrInvalidCategory   = errors.New("materials: category must be LO or WIP")
	ErrInvalidCorrection = errors.New("materials: correction would make available quantity negative")
	ErrNoRows            = errors.New("materials: no valid rows")
	ErrNotFound          = errors.New("materials: lot not found")
)

// Lot — партия бумаги с собственным кодом. TotalQty — исходное количество
// (погонные метры), AvailableQty — сколько ещё можно выдать.
type Lot struct {
	ID            int64     `json:"id"`
	Company       string    `json:"company"`
	MaterialType  string    `json:"material_type"`
	PaperSize     string    `json:"paper_size"`
	PaperCode     string    `json:"paper_code"`
	ProductCode   string    `json:"product_code"`
	Category      Category  `json:"category"`
	RunningMeter  float64   `json:"running_meter"`
	Rolls         float64   `json:"rolls"`
	TotalQty      float64   `json:"total_qty"`
	AvailableQty  float64   `json:"available_qty"`
	Rack          string    `json:"rack"`
	Date          time.Time `json:"date"`
	SourceJobCard string    `json:"source_job_card,omitempty"`
	SourceStage   string    `json:"source_stage,omitempty"`
	JobName       string    `json:"job_name,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewLot — одна строка формы прихода.
type NewLot struct {
	Company      string    `json:"company"`
	MaterialType string    `json:"material_type"`
	PaperSize    string    `json:"paper_size"`
	RunningMeter float64   `json:"running_meter"`
	Rolls        float64   `json:"rolls"`
	Rack         string    `json:"rack"`
	Date         time.Time `json:"date"`
}

// LotHeader + []LotRow — форма с несколькими строками метраж/рулоны.
type LotHeader struct {
	Company      string    `json:"company"`
	MaterialType string    `json:"material_type"`
	PaperSize    string    `json:"paper_size"`
	Rack         string    `json:"rack"`
	Date         time.Time `json:"date"`
}

type LotRow struct {
	RunningMeter *float64 `json:"running_meter"`
	Rolls        *float64 `json:"rolls"`
}

// NewOutput — LO/WIP, полученные на производстве, с указанием источника.
type NewOutput struct {
	Category      Category `json:"category"`
	Company       string   `json:"company"`
	MaterialType  string   `json:"material_type"`
	PaperSize     string   `json:"paper_size"`
	Qty           float64  `json:"qty"`
	Rack          string   `json:"rack"`
	SourceJobCard string   `json:"source_job_card"`
	SourceStage   string   `json:"source_stage"`
	JobName       string   `json:"job_name"`
}

// LotCorrection — правка после создания. Компания и категория не меняются.
type LotCorrection struct {
	MaterialType string    `json:"material_type"`
	RunningMeter float64   `json:"running_meter"`
	Rolls        float64   `json:"rolls"`
	Date         time.Time `json:"date"`
}

type ListQuery struct {
	Search string
	Page   int
}

type LotPage struct {
	Items      []Lot `json:"items"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int   `json:"total"`
}
