package stock

import (
	"time"

	"github.com/Spok95/paperstock/internal/paging"
)

// View — сеанс просмотра отчёта: сверенные строки, активный фильтр и
// текущая страница. Принадлежит одному запросу.
type View struct {
	rows     []Row
	filter   Filter
	filtered []Row
	totals   Totals
	pager    *paging.Pager
	loc      *time.Location
}

func NewView(rows []Row, pageSize int, loc *time.Location) *View {
	v := &View{rows: rows, pager: paging.New(pageSize), loc: loc}
	v.SetFilter(Filter{Category: CategoryAll})
	return v
}

// SetFilter пересчитывает выборку и итоги и возвращает на первую страницу.
func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.filtered = f.Apply(v.rows, v.loc)
	v.totals = Summarize(v.filtered)
	v.pager.Reset(len(v.filtered))
}

func (v *View) Filter() Filter  { return v.filter }
func (v *View) Filtered() []Row { return v.filtered }
func (v *View) Totals() Totals  { return v.totals }

// GoTo — вне [1, TotalPages] страница не меняется.
func (v *View) GoTo(n int) bool { return v.pager.GoTo(n) }

func (v *View) Page() Page {
	from, to := v.pager.Bounds()
	return Page{
		Rows:       v.filtered[from:to],
		Totals:     v.totals,
		Page:       v.pager.Current(),
		TotalPages: v.pager.TotalPages(),
		TotalRows:  len(v.filtered),
	}
}
