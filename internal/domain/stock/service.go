package stock

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/infra/metrics"
)

type LotSource interface {
	All(ctx context.Context) ([]materials.Lot, error)
}

type TransactionSource interface {
	List(ctx context.Context) ([]consumption.Transaction, error)
}

// Service собирает отчёт: одно чтение лотов и выдач, дальше только свёртка.
type Service struct {
	lots     LotSource
	txs      TransactionSource
	log      *slog.Logger
	metrics  *metrics.Metrics
	pageSize int
	loc      *time.Location
	now      func() time.Time
}

func NewService(lots LotSource, txs TransactionSource, log *slog.Logger, m *metrics.Metrics, pageSize int, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		lots:     lots,
		txs:      txs,
		log:      log,
		metrics:  m,
		pageSize: pageSize,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// Rows — все сверенные строки без фильтра.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	lots, err := s.lots.All(ctx)
	if err != nil {
		s.log.Error("stock report: load lots", "err", err)
		return nil, fmt.Errorf("load lots: %w", err)
	}
	txs, err := s.txs.List(ctx)
	if err != nil {
		s.log.Error("stock report: load transactions", "err", err)
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return Reconcile(lots, txs), nil
}

// View открывает сеанс отчёта с применённым фильтром.
func (s *Service) View(ctx context.Context, f Filter) (*View, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	v := NewView(rows, s.pageSize, s.loc)
	v.SetFilter(f)
	return v, nil
}

// Report — страница отчёта. Номер страницы вне диапазона игнорируется.
func (s *Service) Report(ctx context.Context, f Filter, page int) (*Page, error) {
	v, err := s.View(ctx, f)
	if err != nil {
		return nil, err
	}
	v.GoTo(page)
	p := v.Page()
	return &p, nil
}

// ExportCSV пишет отфильтрованные строки и возвращает имя файла.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f Filter) (string, error) {
	v, err := s.View(ctx, f)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(w, v.Filtered(), s.loc); err != nil {
		return "", err
	}
	s.metrics.Exported("csv")
	return CSVFileName(s.now().In(s.loc)), nil
}

func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, f Filter) (string, error) {
	v, err := s.View(ctx, f)
	if err != nil {
		return "", err
	}
	if err := WriteXLSX(w, v.Filtered(), v.Totals(), s.loc); err != nil {
		return "", err
	}
	s.metrics.Exported("xlsx")
	return XLSXFileName(s.now().In(s.loc)), nil
}
