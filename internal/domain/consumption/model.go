package consumption

import (
	"strings"
	"time"
)

// Transaction — запись о выдаче материала по job card. Создаётся только
// при выдаче и больше не меняется.
type Transaction struct {
	ID          int64     `json:"id"`
	PaperCodes  string    `json:"paper_product_no"` // "SUP25-001, SUP25-002"
	JobCardNo   string    `json:"job_card_no"`
	RequestID   *int64    `json:"request_id,omitempty"`
	UsedQty     float64   `json:"used_qty"`
	WasteQty    float64   `json:"waste_qty"`
	LeftoverQty float64   `json:"lo_qty"`
	WIPQty      float64   `json:"wip_qty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Codes разбирает список кодов через запятую, пустые элементы отбрасываются.
func (t Transaction) Codes() []string {
	if t.PaperCodes == "" {
		return nil
	}
	parts := strings.Split(t.PaperCodes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Mentions — есть ли код лота в списке транзакции.
func (t Transaction) Mentions(code string) bool {
	for _, c := range t.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

func JoinCodes(codes []string) string {
	return strings.Join(codes, ", ")
}
