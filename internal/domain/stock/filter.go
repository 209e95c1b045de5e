package stock

import (
	"errors"
	"strings"
	"time"

	"github.com/Spok95/paperstock/internal/domain/materials"
)

// CategoryAll — без фильтра по категории.
const CategoryAll = "ALL"

var ErrInvalidFilter = errors.New("stock: invalid filter")

type Filter struct {
	Search   string
	Category string // ALL | RAW | LO | WIP
	From     *time.Time
	To       *time.Time
}

// Validate нормализует категорию; пустая означает ALL.
func (f *Filter) Validate() error {
	if f.Category == "" || strings.EqualFold(f.Category, CategoryAll) {
		f.Category = CategoryAll
	} else {
		c, ok := materials.ParseCategory(f.Category)
		if !ok {
			return ErrInvalidFilter
		}
		f.Category = string(c)
	}
	if f.From != nil && f.To != nil && day(*f.From) > day(*f.To) {
		return ErrInvalidFilter
	}
	return nil
}

// Apply оставляет строки, прошедшие все условия. Даты строк сравниваются
// как календарные дни в loc, границы включительно.
func (f Filter) Apply(rows []Row, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.ToLower(strings.TrimSpace(f.Search))
	var from, to string
	if f.From != nil {
		from = day(*f.From)
	}
	if f.To != nil {
		to = day(*f.To)
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Category != "" && f.Category != CategoryAll && string(r.Category) != f.Category {
			continue
		}
		if s != "" && !matches(r, s) {
			continue
		}
		if from != "" || to != "" {
			d := day(r.Date.In(loc))
			if from != "" && d < from {
				continue
			}
			if to != "" && d > to {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func matches(r Row, s string) bool {
	for _, v := range []string{r.PaperCode, r.ProductCode, r.JobName, r.SourceJobCard} {
		if strings.Contains(strings.ToLower(v), s) {
			return true
		}
	}
	return false
}

func day(t time.Time) string { return t.Format(time.DateOnly) }
