package issuance

import (
	"errors"
	"time"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/google/uuid"
)

var (
	ErrJobCardRequired = errors.New("issuance: job card number is required")
	ErrRequestNotFound = errors.New("issuance: request not found")
	ErrDraftNotFound   = errors.New("issuance: draft not found")
	ErrLotNotFound     = errors.New("issuance: lot not found")
	ErrNotSelected     = errors.New("issuance: lot is not selected")
	ErrEmptySelection  = errors.New("issuance: nothing selected")
	ErrInvalidQty      = errors.New("issuance: issued quantity must be > 0")
	ErrOverIssue       = errors.New("issuance: issued quantity exceeds available")
	ErrAlreadyIssued   = errors.New("issuance: request already issued")
	ErrDuplicateLot    = errors.New("issuance: lot selected twice")
	ErrLotMismatch     = errors.New("issuance: lot does not match request company, material or size")
	ErrHeaderRequired  = errors.New("issuance: company is required")
)

type RequestStatus string

const (
	StatusPending RequestStatus = "pending"
	StatusIssued  RequestStatus = "issued"
)

// Request — заявка на выдачу материала под job card.
type Request struct {
	ID                int64         `json:"id"`
	JobCardNo         string        `json:"job_card_no"`
	JobName           string        `json:"job_name"`
	PaperSize         string        `json:"paper_size"`
	RequestedMaterial string        `json:"requested_material"`
	MaterialType      string        `json:"material_type"`
	Company           string        `json:"company"`
	RequestType       string        `json:"request_type"` // WIP | Additional
	RequiredQty       float64       `json:"required_qty"`
	RequestDate       *time.Time    `json:"request_date,omitempty"`
	AllotDate         *time.Time    `json:"allot_date,omitempty"`
	Status            RequestStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

type RequestQuery struct {
	Search string
	From   *time.Time
	To     *time.Time
}

// Header — реквизиты заявки, по которым подбираются лоты.
type Header struct {
	JobCardNo    string `json:"job_card_no"`
	JobName      string `json:"job_name"`
	Company      string `json:"company"`
	MaterialType string `json:"material_type"`
	PaperSize    string `json:"paper_size"`
}

// Matches — лот того же поставщика, типа и формата, что и заявка
// (по тем же полям строятся пулы RAW, LO и WIP).
func (h Header) Matches(lot materials.Lot) bool {
	return lot.Company == h.Company &&
		lot.MaterialType == h.MaterialType &&
		lot.PaperSize == h.PaperSize
}

func (r Request) Header() Header {
	return Header{
		JobCardNo:    r.JobCardNo,
		JobName:      r.JobName,
		Company:      r.Company,
		MaterialType: r.MaterialType,
		PaperSize:    r.PaperSize,
	}
}

// RollSelection — выбранный лот и сколько с него выдать.
type RollSelection struct {
	LotID     int64              `json:"lot_id"`
	PaperCode string             `json:"paper_code"`
	Category  materials.Category `json:"category"`
	Available float64            `json:"available"`
	IssuedQty float64            `json:"issued_qty"`
}

// Pools — кандидаты на выдачу: сырьё по точному совпадению и пулы LO/WIP.
type Pools struct {
	Raw      []materials.Lot `json:"raw"`
	Leftover []materials.Lot `json:"leftover"`
	WIP      []materials.Lot `json:"wip"`
}

// Outputs — отходы/остатки, зафиксированные при выдаче.
type Outputs struct {
	WasteQty    float64 `json:"waste_qty"`
	LeftoverQty float64 `json:"lo_qty"`
	WIPQty      float64 `json:"wip_qty"`
}

type CommitInput struct {
	RequestID *int64
	JobCardNo string
	Selection *Selection
	Outputs   Outputs
}

// Line — одна позиция списания для хранилища.
type Line struct {
	LotID int64
	Qty   float64
}

type Order struct {
	RequestID      *int64
	JobCardNo      string
	Lines          []Line
	Outputs        Outputs
	AllowOverIssue bool
}

// LineResult — остаток лота до и после списания.
type LineResult struct {
	LotID     int64   `json:"lot_id"`
	PaperCode string  `json:"paper_code"`
	Issued    float64 `json:"issued"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
}

type Receipt struct {
	Transaction consumption.Transaction `json:"transaction"`
	Lines       []LineResult            `json:"lines"`
	TotalIssued float64                 `json:"total_issued"`
}

// Draft — черновик выдачи одного оператора: заявка + выбор рулонов.
type Draft struct {
	ID        uuid.UUID  `json:"id"`
	RequestID *int64     `json:"request_id,omitempty"`
	Header    Header     `json:"header"`
	Selection *Selection `json:"selection"`
	UpdatedAt time.Time  `json:"updated_at"`
}
