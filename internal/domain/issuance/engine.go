package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/infra/metrics"
	"github.com/google/uuid"
)

// Lots — доступ к реестру лотов (materials.Ledger).
type Lots interface {
	Match(ctx context.Context, c materials.Category, company, materialType, paperSize string) ([]materials.Lot, error)
	GetLot(ctx context.Context, id int64) (*materials.Lot, error)
}

// PoolSource поставляет пулы LO и WIP для заявки.
type PoolSource interface {
	Leftover(ctx context.Context, h Header) ([]materials.Lot, error)
	WorkInProgress(ctx context.Context, h Header) ([]materials.Lot, error)
}

// Store — заявки и атомарное списание.
type Store interface {
	// Commit в одной транзакции списывает все позиции, пишет запись
	// consumption и закрывает заявку. Любая ошибка откатывает всё.
	Commit(ctx context.Context, o Order) (*Receipt, error)
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id int64) (*Request, error)
	ListRequests(ctx context.Context) ([]Request, error)
}

type DraftStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Notifier interface {
	IssuanceCommitted(ctx context.Context, r Receipt) error
}

type Engine struct {
	lots           Lots
	pools          PoolSource
	store          Store
	drafts         DraftStore
	notifier       Notifier
	metrics        *metrics.Metrics
	log            *slog.Logger
	allowOverIssue bool
	notifyTimeout  time.Duration
	now            func() time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option        { return func(e *Engine) { e.notifier = n } }
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }
func WithPools(p PoolSource) Option         { return func(e *Engine) { e.pools = p } }
func WithOverIssue(allow bool) Option       { return func(e *Engine) { e.allowOverIssue = allow } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithNotifyTimeout ограничивает, сколько Commit ждёт уведомление.
func WithNotifyTimeout(d time.Duration) Option { return func(e *Engine) { e.notifyTimeout = d } }

func NewEngine(lots Lots, store Store, drafts DraftStore, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		lots:   lots,
		store:  store,
		drafts: drafts,
		log:    log,
		now:    time.Now,

		notifyTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	if e.pools == nil {
		e.pools = LedgerPools{lots: lots}
	}
	return e
}

// MatchLots — RAW с точным совпадением компании/типа/формата плюс пулы LO/WIP.
func (e *Engine) MatchLots(ctx context.Context, h Header) (*Pools, error) {
	raw, err := e.lots.Match(ctx, materials.CategoryRaw, h.Company, h.MaterialType, h.PaperSize)
	if err != nil {
		return nil, fmt.Errorf("match raw: %w", err)
	}
	lo, err := e.pools.Leftover(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("leftover pool: %w", err)
	}
	wip, err := e.pools.WorkInProgress(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("wip pool: %w", err)
	}
	return &Pools{Raw: raw, Leftover: lo, WIP: wip}, nil
}

// Commit списывает выбранные рулоны. Всё или ничего.
func (e *Engine) Commit(ctx context.Context, in CommitInput) (*Receipt, error) {
	if in.Selection == nil || in.Selection.Len() == 0 {
		return nil, ErrEmptySelection
	}
	if in.Outputs.WasteQty < 0 || in.Outputs.LeftoverQty < 0 || in.Outputs.WIPQty < 0 {
		return nil, ErrInvalidQty
	}
	order := Order{
		RequestID:      in.RequestID,
		JobCardNo:      strings.TrimSpace(in.JobCardNo),
		Outputs:        in.Outputs,
		AllowOverIssue: e.allowOverIssue,
	}
	for _, l := range in.Selection.Lines() {
		if l.IssuedQty <= 0 {
			return nil, fmt.Errorf("%w: lot %s", ErrInvalidQty, l.PaperCode)
		}
		order.Lines = append(order.Lines, Line{LotID: l.LotID, Qty: l.IssuedQty})
	}

	rc, err := e.store.Commit(ctx, order)
	if err != nil {
		e.metrics.IssueFailed()
		e.log.Error("issuance commit failed", "job_card", order.JobCardNo, "lines", len(order.Lines), "err", err)
		return nil, fmt.Errorf("commit issuance: %w", err)
	}
	e.metrics.IssueCommitted(rc.TotalIssued)
	e.log.Info("material issued",
		"job_card", order.JobCardNo,
		"paper_codes", rc.Transaction.PaperCodes,
		"total", rc.TotalIssued,
	)

	if e.notifier != nil {
		// выдача уже проведена: ни отмена запроса, ни медленный Bot API её не откатывают
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
		defer cancel()
		if err := e.notifier.IssuanceCommitted(nctx, *rc); err != nil {
			e.log.Warn("issuance notification failed", "err", err)
		}
	}
	return rc, nil
}

// SettleLine проверяет позицию против остатка и возвращает новый остаток.
// При разрешённой перевыдаче остаток не уходит ниже нуля.
func SettleLine(available, qty float64, allowOverIssue bool) (float64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQty
	}
	after := available - qty
	if after < 0 {
		if !allowOverIssue {
			return 0, ErrOverIssue
		}
		after = 0
	}
	return after, nil
}

// SortedLines — позиции по возрастанию id лота: единый порядок блокировок.
func SortedLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].LotID < out[j].LotID })
	return out
}

/* Заявки */

func (e *Engine) CreateRequest(ctx context.Context, r Request) (*Request, error) {
	r.JobCardNo = strings.TrimSpace(r.JobCardNo)
	if r.JobCardNo == "" {
		return nil, ErrJobCardRequired
	}
	r.Status = StatusPending
	if err := e.store.CreateRequest(ctx, &r); err != nil {
		e.log.Error("create request failed", "job_card", r.JobCardNo, "err", err)
		return nil, err
	}
	e.log.Info("issue request created", "id", r.ID, "job_card", r.JobCardNo)
	return &r, nil
}

func (e *Engine) GetRequest(ctx context.Context, id int64) (*Request, error) {
	r, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

// ListRequests — поиск по job card / названию / компании и диапазон дат заявки.
func (e *Engine) ListRequests(ctx context.Context, q RequestQuery) ([]Request, error) {
	all, err := e.store.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRequests(all, q), nil
}

func FilterRequests(all []Request, q RequestQuery) []Request {
	s := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Request, 0, len(all))
	for _, r := range all {
		if s != "" &&
			!strings.Contains(strings.ToLower(r.JobCardNo), s) &&
			!strings.Contains(strings.ToLower(r.JobName), s) &&
			!strings.Contains(strings.ToLower(r.Company), s) {
			continue
		}
		if q.From != nil || q.To != nil {
			if r.RequestDate == nil {
				continue
			}
			d := r.RequestDate.Format(time.DateOnly)
			if q.From != nil && d < q.From.Format(time.DateOnly) {
				continue
			}
			if q.To != nil && d > q.To.Format(time.DateOnly) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

/* Черновики */

// OpenDraft начинает выдачу по заявке (requestID) или по реквизитам h.
func (e *Engine) OpenDraft(ctx context.Context, requestID *int64, h Header) (*Draft, error) {
	if requestID != nil {
		r, err := e.GetRequest(ctx, *requestID)
		if err != nil {
			return nil, err
		}
		if r.Status == StatusIssued {
			return nil, ErrAlreadyIssued
		}
		h = r.Header()
	}
	if strings.TrimSpace(h.Company) == "" {
		return nil, ErrHeaderRequired
	}
	d := &Draft{
		ID:        uuid.New(),
		RequestID: requestID,
		Header:    h,
		Selection: NewSelection(),
		UpdatedAt: e.now(),
	}
	if err := e.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) GetDraft(ctx context.Context, id uuid.UUID) (*Draft, error) {
	d, err := e.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDraftNotFound
	}
	if d.Selection == nil {
		d.Selection = NewSelection()
	}
	return d, nil
}

func (e *Engine) ToggleLot(ctx context.Context, id uuid.UUID, lotID int64) (*Draft, error) {
	d, err := e.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	lot, err := e.lots.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	// снять выбор можно всегда, добавить — только лот из пулов заявки
	if !d.Selection.Has(lot.ID) && !d.Header.Matches(*lot) {
		return nil, fmt.Errorf("%w: %s", ErrLotMismatch, lot.PaperCode)
	}
	d.Selection.Toggle(*lot, lot.Category)
	d.UpdatedAt = e.now()
	if err := e.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) SetQty(ctx context.Context, id uuid.UUID, lotID int64, qty float64) (*Draft, error) {
	d, err := e.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Selection.SetIssuedQuantity(lotID, qty); err != nil {
		return nil, err
	}
	d.UpdatedAt = e.now()
	if err := e.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CommitDraft проводит черновик; после успеха черновик удаляется.
func (e *Engine) CommitDraft(ctx context.Context, id uuid.UUID, out Outputs) (*Receipt, error) {
	d, err := e.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := e.Commit(ctx, CommitInput{
		RequestID: d.RequestID,
		JobCardNo: d.Header.JobCardNo,
		Selection: d.Selection,
		Outputs:   out,
	})
	if err != nil {
		return nil, err
	}
	if err := e.drafts.Delete(ctx, id); err != nil {
		e.log.Warn("draft cleanup failed", "draft", id, "err", err)
	}
	return rc, nil
}

func (e *Engine) DiscardDraft(ctx context.Context, id uuid.UUID) error {
	return e.drafts.Delete(ctx, id)
}
