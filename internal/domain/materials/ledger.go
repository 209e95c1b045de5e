package materials

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/paperstock/internal/infra/metrics"
	"github.com/Spok95/paperstock/internal/paging"
	"github.com/shopspring/decimal"
)

// Store — хранилище лотов. Create выделяет номер кода атомарно
// (в той же транзакции, что и вставка) и заполняет ID/PaperCode/CreatedAt.
type Store interface {
	Create(ctx context.Context, lot *Lot, prefix string) error
	GetByID(ctx context.Context, id int64) (*Lot, error)
	// Correct применяет fn к заблокированной строке и сохраняет результат.
	// Возвращает nil, nil, если лота нет.
	Correct(ctx context.Context, id int64, fn func(*Lot) error) (*Lot, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]Lot, error)
	Match(ctx context.Context, c Category, company, materialType, paperSize string) ([]Lot, error)
}

// Catalog — справочник компаний/типов. Может быть nil.
type Catalog interface {
	Known(ctx context.Context, company, materialType string) (bool, error)
}

type Ledger struct {
	store    Store
	catalog  Catalog
	metrics  *metrics.Metrics
	log      *slog.Logger
	pageSize int
	now      func() time.Time
}

type Option func(*Ledger)

func WithCatalog(c Catalog) Option          { return func(l *Ledger) { l.catalog = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(l *Ledger) { l.metrics = m } }
func WithPageSize(n int) Option             { return func(l *Ledger) { l.pageSize = n } }
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func NewLedger(store Store, log *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{store: store, log: log, pageSize: 10, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) checkCatalog(ctx context.Context, company, materialType string) error {
	if l.catalog == nil {
		return nil
	}
	ok, err := l.catalog.Known(ctx, company, materialType)
	if err != nil {
		return fmt.Errorf("catalog lookup: %w", err)
	}
	if !ok {
		return ErrUnknownCompany
	}
	return nil
}

// prepareLot нормализует строку прихода и проверяет её целиком, до записи.
func (l *Ledger) prepareLot(ctx context.Context, in NewLot) (NewLot, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.MaterialType = strings.TrimSpace(in.MaterialType)
	in.PaperSize = strings.TrimSpace(in.PaperSize)
	in.Rack = strings.TrimSpace(in.Rack)
	if in.Company == "" {
		return in, ErrCompanyRequired
	}
	if in.RunningMeter <= 0 || in.Rolls <= 0 {
		return in, ErrInvalidQuantity
	}
	if err := l.checkCatalog(ctx, in.Company, in.MaterialType); err != nil {
		return in, err
	}
	return in, nil
}

// CreateLot регистрирует приход сырья: total = метраж * рулоны.
func (l *Ledger) CreateLot(ctx context.Context, in NewLot) (*Lot, error) {
	in, err := l.prepareLot(ctx, in)
	if err != nil {
		return nil, err
	}
	return l.insertLot(ctx, in)
}

func (l *Ledger) insertLot(ctx context.Context, in NewLot) (*Lot, error) {
	now := l.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	total := decimal.NewFromFloat(in.RunningMeter).Mul(decimal.NewFromFloat(in.Rolls)).InexactFloat64()
	lot := &Lot{
		Company:      in.Company,
		MaterialType: in.MaterialType,
		PaperSize:    in.PaperSize,
		ProductCode:  ProductCode(in.MaterialType, in.PaperSize),
		Category:     CategoryRaw,
		RunningMeter: in.RunningMeter,
		Rolls:        in.Rolls,
		TotalQty:     total,
		AvailableQty: total,
		Rack:         in.Rack,
		Date:         date,
		Active:       true,
	}
	// год в коде — по дате регистрации, не по дате в форме
	if err := l.store.Create(ctx, lot, CodePrefix(in.Company, CategoryRaw, now)); err != nil {
		l.log.Error("create lot failed", "company", in.Company, "err", err)
		return nil, fmt.Errorf("create lot: %w", err)
	}
	l.metrics.LotCreated(string(lot.Category))
	l.log.Info("lot created", "id", lot.ID, "paper_code", lot.PaperCode, "total", lot.TotalQty)
	return lot, nil
}

// CreateLots создаёт по лоту на каждую заполненную строку формы.
// Строки без метража или рулонов пропускаются. Все строки проверяются
// до первой записи: ошибка в любой из них не оставляет созданных лотов.
func (l *Ledger) CreateLots(ctx context.Context, h LotHeader, rows []LotRow) ([]Lot, error) {
	if strings.TrimSpace(h.Company) == "" {
		return nil, ErrCompanyRequired
	}
	var prepared []NewLot
	for i, r := range rows {
		if r.RunningMeter == nil || r.Rolls == nil {
			continue
		}
		in, err := l.prepareLot(ctx, NewLot{
			Company:      h.Company,
			MaterialType: h.MaterialType,
			PaperSize:    h.PaperSize,
			RunningMeter: *r.RunningMeter,
			Rolls:        *r.Rolls,
			Rack:         h.Rack,
			Date:         h.Date,
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		prepared = append(prepared, in)
	}
	if len(prepared) == 0 {
		return nil, ErrNoRows
	}

	out := make([]Lot, 0, len(prepared))
	for _, in := range prepared {
		lot, err := l.insertLot(ctx, in)
		if err != nil {
			// сбой хранилища: уже созданные лоты остаются, каждый — отдельная запись
			return out, err
		}
		out = append(out, *lot)
	}
	return out, nil
}

// RegisterOutput заводит LO/WIP-лот с происхождением (job card, стадия).
func (l *Ledger) RegisterOutput(ctx context.Context, in NewOutput) (*Lot, error) {
	if in.Category != CategoryLeftover && in.Category != CategoryWIP {
		return nil, ErrInvalidCategory
	}
	company := strings.TrimSpace(in.Company)
	materialType := strings.TrimSpace(in.MaterialType)
	paperSize := strings.TrimSpace(in.PaperSize)
	if company == "" {
		return nil, ErrCompanyRequired
	}
	if in.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := l.checkCatalog(ctx, company, materialType); err != nil {
		return nil, err
	}

	now := l.now()
	lot := &Lot{
		Company:       company,
		MaterialType:  materialType,
		PaperSize:     paperSize,
		ProductCode:   ProductCode(materialType, paperSize),
		Category:      in.Category,
		TotalQty:      in.Qty,
		AvailableQty:  in.Qty,
		Rack:          strings.TrimSpace(in.Rack),
		Date:          now,
		SourceJobCard: strings.TrimSpace(in.SourceJobCard),
		SourceStage:   strings.TrimSpace(in.SourceStage),
		JobName:       strings.TrimSpace(in.JobName),
		Active:        true,
	}
	if err := l.store.Create(ctx, lot, CodePrefix(company, in.Category, now)); err != nil {
		l.log.Error("register output failed", "category", in.Category, "err", err)
		return nil, fmt.Errorf("register output: %w", err)
	}
	l.metrics.LotCreated(string(lot.Category))
	l.log.Info("output lot created", "id", lot.ID, "paper_code", lot.PaperCode, "source_job", lot.SourceJobCard)
	return lot, nil
}

// ApplyCorrection пересчитывает total и сдвигает остаток на ту же разницу.
// Считается в decimal: у невыданного лота остаток совпадает с новым total
// точно, без хвоста float.
func ApplyCorrection(lot *Lot, c LotCorrection) error {
	if c.RunningMeter <= 0 || c.Rolls <= 0 {
		return ErrInvalidQuantity
	}
	total := decimal.NewFromFloat(c.RunningMeter).Mul(decimal.NewFromFloat(c.Rolls))
	available := decimal.NewFromFloat(lot.AvailableQty).
		Add(total).
		Sub(decimal.NewFromFloat(lot.TotalQty))
	if available.IsNegative() {
		return ErrInvalidCorrection
	}
	totalF := total.InexactFloat64()
	availableF := math.Min(available.InexactFloat64(), totalF)

	if mt := strings.TrimSpace(c.MaterialType); mt != "" {
		lot.MaterialType = mt
		lot.ProductCode = ProductCode(mt, lot.PaperSize)
	}
	lot.RunningMeter = c.RunningMeter
	lot.Rolls = c.Rolls
	lot.TotalQty = totalF
	lot.AvailableQty = availableF
	if !c.Date.IsZero() {
		lot.Date = c.Date
	}
	return nil
}

func (l *Ledger) UpdateLot(ctx context.Context, id int64, c LotCorrection) (*Lot, error) {
	lot, err := l.store.Correct(ctx, id, func(lot *Lot) error {
		return ApplyCorrection(lot, c)
	})
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}
	l.log.Info("lot corrected", "id", id, "total", lot.TotalQty, "available", lot.AvailableQty)
	return lot, nil
}

func (l *Ledger) GetLot(ctx context.Context, id int64) (*Lot, error) {
	lot, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}
	return lot, nil
}

// DeleteLot — административное удаление, в учёте количеств не участвует.
func (l *Ledger) DeleteLot(ctx context.Context, id int64) error {
	ok, err := l.store.Delete(ctx, id)
	if err != nil {
		l.log.Error("delete lot failed", "id", id, "err", err)
		return err
	}
	if !ok {
		return ErrNotFound
	}
	l.log.Info("lot deleted", "id", id)
	return nil
}

// MatchRaw — RAW-лоты с точным совпадением компании, типа и формата.
func (l *Ledger) MatchRaw(ctx context.Context, company, materialType, paperSize string) ([]Lot, error) {
	return l.store.Match(ctx, CategoryRaw, company, materialType, paperSize)
}

func (l *Ledger) Match(ctx context.Context, c Category, company, materialType, paperSize string) ([]Lot, error) {
	return l.store.Match(ctx, c, company, materialType, paperSize)
}

func (l *Ledger) All(ctx context.Context) ([]Lot, error) {
	return l.store.List(ctx)
}

// ListLots — список прихода: новые сверху, поиск без учёта регистра.
func (l *Ledger) ListLots(ctx context.Context, q ListQuery) (*LotPage, error) {
	all, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(all)
	filtered := SearchLots(all, q.Search)

	p := paging.New(l.pageSize)
	p.Reset(len(filtered))
	if q.Page > 1 {
		p.GoTo(q.Page)
	}
	return &LotPage{
		Items:      paging.Slice(p, filtered),
		Page:       p.Current(),
		TotalPages: p.TotalPages(),
		Total:      len(filtered),
	}, nil
}

func SortNewestFirst(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].CreatedAt.After(lots[j].CreatedAt)
	})
}

// SearchLots: код, компания, тип материала или общий метраж.
func SearchLots(lots []Lot, search string) []Lot {
	s := strings.ToLower(strings.TrimSpace(search))
	if s == "" {
		return lots
	}
	out := make([]Lot, 0, len(lots))
	for _, lot := range lots {
		if strings.Contains(strings.ToLower(lot.PaperCode), s) ||
			strings.Contains(strings.ToLower(lot.Company), s) ||
			strings.Contains(strings.ToLower(lot.MaterialType), s) ||
			strings.Contains(strconv.FormatFloat(lot.TotalQty, 'f', -1, 64), s) {
			out = append(out, lot)
		}
	}
	return out
}
