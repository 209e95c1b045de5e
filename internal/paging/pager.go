// Package paging — постраничный вывод уже отфильтрованных списков.
package paging

// Pager хранит текущую страницу (с 1) и фиксированный размер страницы.
type Pager struct {
	size  int
	total int
	page  int
}

func New(size int) *Pager {
	if size <= 0 {
		size = 10
	}
	return &Pager{size: size, page: 1}
}

func (p *Pager) Size() int    { return p.size }
func (p *Pager) Current() int { return p.page }
func (p *Pager) Total() int   { return p.total }

// TotalPages = ceil(total/size); для пустого списка 0.
func (p *Pager) TotalPages() int {
	return (p.total + p.size - 1) / p.size
}

// Reset задаёт новое количество строк и возвращает на первую страницу.
func (p *Pager) Reset(total int) {
	if total < 0 {
		total = 0
	}
	p.total = total
	p.page = 1
}

// GoTo переходит на страницу n; вне [1, TotalPages] ничего не меняет.
func (p *Pager) GoTo(n int) bool {
	if n < 1 || n > p.TotalPages() {
		return false
	}
	p.page = n
	return true
}

func (p *Pager) Next() bool { return p.GoTo(p.page + 1) }
func (p *Pager) Prev() bool { return p.GoTo(p.page - 1) }

// Bounds — полуинтервал [from, to) текущей страницы.
func (p *Pager) Bounds() (from, to int) {
	from = (p.page - 1) * p.size
	if from > p.total {
		from = p.total
	}
	to = from + p.size
	if to > p.total {
		to = p.total
	}
	return from, to
}

// Slice возвращает строки текущей страницы.
func Slice[T any](p *Pager, items []T) []T {
	if p.total != len(items) {
		p.Reset(len(items))
	}
	from, to := p.Bounds()
	return items[from:to]
}
