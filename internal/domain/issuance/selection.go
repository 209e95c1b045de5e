package issuance

import (
	"encoding/json"

	"github.com/Spok95/paperstock/internal/domain/materials"
)

// Selection — набор выбранных рулонов, ключ — id лота. Порядок добавления
// сохраняется. Не потокобезопасен: принадлежит одному черновику.
type Selection struct {
	lines []RollSelection
}

func NewSelection() *Selection { return &Selection{} }

func (s *Selection) index(lotID int64) int {
	for i, l := range s.lines {
		if l.LotID == lotID {
			return i
		}
	}
	return -1
}

func (s *Selection) Has(lotID int64) bool { return s.index(lotID) >= 0 }

// Toggle добавляет лот с выдачей на весь остаток или убирает уже выбранный.
// Возвращает true, если лот теперь выбран.
func (s *Selection) Toggle(lot materials.Lot, category materials.Category) bool {
	if i := s.index(lot.ID); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		return false
	}
	s.lines = append(s.lines, RollSelection{
		LotID:     lot.ID,
		PaperCode: lot.PaperCode,
		Category:  category,
		Available: lot.AvailableQty,
		IssuedQty: lot.AvailableQty,
	})
	return true
}

// SetIssuedQuantity перезаписывает количество; границы здесь не проверяются,
// это делает Commit под блокировкой.
func (s *Selection) SetIssuedQuantity(lotID int64, qty float64) error {
	i := s.index(lotID)
	if i < 0 {
		return ErrNotSelected
	}
	s.lines[i].IssuedQty = qty
	return nil
}

func (s *Selection) Lines() []RollSelection {
	out := make([]RollSelection, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Selection) Len() int { return len(s.lines) }

func (s *Selection) Total() float64 {
	var sum float64
	for _, l := range s.lines {
		sum += l.IssuedQty
	}
	return sum
}

func (s *Selection) Clear() { s.lines = nil }

func (s *Selection) MarshalJSON() ([]byte, error) {
	if s.lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.lines)
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	var lines []RollSelection
	if err := json.Unmarshal(b, &lines); err != nil {
		return err
	}
	s.lines = make([]RollSelection, 0, len(lines))
	for _, l := range lines {
		if !s.Has(l.LotID) {
			s.lines = append(s.lines, l)
		}
	}
	return nil
}
