package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/paperstock/internal/domain/catalog"
	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/domain/stock"
	"github.com/Spok95/paperstock/internal/infra/logger"
	"github.com/Spok95/paperstock/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// memDB — общее состояние фейков: лоты, выдачи, заявки, черновики.
type memDB struct {
	mu       sync.Mutex
	lots     map[int64]*materials.Lot
	nextLot  int64
	txs      []consumption.Transaction
	requests map[int64]*issuance.Request
	nextReq  int64
	drafts   map[uuid.UUID]issuance.Draft
	base     time.Time
}

func newMemDB() *memDB {
	return &memDB{
		lots:     map[int64]*materials.Lot{},
		requests: map[int64]*issuance.Request{},
		drafts:   map[uuid.UUID]issuance.Draft{},
		base:     time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

/* materials.Store */

func (m *memDB) Create(_ context.Context, lot *materials.Lot, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes []string
	for _, l := range m.lots {
		codes = append(codes, l.PaperCode)
	}
	m.nextLot++
	lot.ID = m.nextLot
	lot.PaperCode = materials.NextCode(prefix, codes)
	lot.CreatedAt = m.base.Add(time.Duration(lot.ID) * time.Hour)
	cp := *lot
	m.lots[lot.ID] = &cp
	return nil
}

func (m *memDB) GetByID(_ context.Context, id int64) (*materials.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *memDB) Correct(_ context.Context, id int64, fn func(*materials.Lot) error) (*materials.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	if err := fn(&cp); err != nil {
		return nil, err
	}
	*l = cp
	return &cp, nil
}

func (m *memDB) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lots[id]
	delete(m.lots, id)
	return ok, nil
}

func (m *memDB) List(_ context.Context) ([]materials.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]materials.Lot, 0, len(m.lots))
	for _, l := range m.lots {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDB) Match(ctx context.Context, c materials.Category, company, mt, size string) ([]materials.Lot, error) {
	all, _ := m.List(ctx)
	var out []materials.Lot
	for _, l := range all {
		if l.Category == c && l.Company == company && l.MaterialType == mt && l.PaperSize == size {
			out = append(out, l)
		}
	}
	return out, nil
}

/* issuance.Store */

type issuanceStore struct{ db *memDB }

func (s issuanceStore) Commit(_ context.Context, o issuance.Order) (*issuance.Receipt, error) {
	m := s.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.RequestID != nil {
		r, ok := m.requests[*o.RequestID]
		if !ok {
			return nil, issuance.ErrRequestNotFound
		}
		if r.Status == issuance.StatusIssued {
			return nil, issuance.ErrAlreadyIssued
		}
	}
	after := map[int64]float64{}
	for _, l := range issuance.SortedLines(o.Lines) {
		lot, ok := m.lots[l.LotID]
		if !ok {
			return nil, issuance.ErrLotNotFound
		}
		a, err := issuance.SettleLine(lot.AvailableQty, l.Qty, o.AllowOverIssue)
		if err != nil {
			return nil, err
		}
		after[l.LotID] = a
	}
	rc := &issuance.Receipt{}
	var codes []string
	for _, l := range o.Lines {
		lot := m.lots[l.LotID]
		rc.Lines = append(rc.Lines, issuance.LineResult{LotID: lot.ID, PaperCode: lot.PaperCode, Issued: l.Qty, Before: lot.AvailableQty, After: after[lot.ID]})
		lot.AvailableQty = after[lot.ID]
		codes = append(codes, lot.PaperCode)
		rc.TotalIssued += l.Qty
	}
	rc.Transaction = consumption.Transaction{
		ID: int64(len(m.txs) + 1), PaperCodes: consumption.JoinCodes(codes), JobCardNo: o.JobCardNo,
		RequestID: o.RequestID, UsedQty: rc.TotalIssued, WasteQty: o.Outputs.WasteQty,
		LeftoverQty: o.Outputs.LeftoverQty, WIPQty: o.Outputs.WIPQty,
	}
	m.txs = append(m.txs, rc.Transaction)
	if o.RequestID != nil {
		m.requests[*o.RequestID].Status = issuance.StatusIssued
	}
	return rc, nil
}

func (s issuanceStore) CreateRequest(_ context.Context, r *issuance.Request) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextReq++
	r.ID = s.db.nextReq
	cp := *r
	s.db.requests[r.ID] = &cp
	return nil
}

func (s issuanceStore) GetRequest(_ context.Context, id int64) (*issuance.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s issuanceStore) ListRequests(_ context.Context) ([]issuance.Request, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []issuance.Request
	for id := int64(1); id <= s.db.nextReq; id++ {
		out = append(out, *s.db.requests[id])
	}
	return out, nil
}

/* issuance.DraftStore: через JSON, как в БД */

type draftStore struct{ db *memDB }

func (s draftStore) Get(_ context.Context, id uuid.UUID) (*issuance.Draft, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, ok := s.db.drafts[id]
	if !ok {
		return nil, nil
	}
	raw, _ := json.Marshal(d)
	var out issuance.Draft
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s draftStore) Save(_ context.Context, d *issuance.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	var cp issuance.Draft
	if err := json.Unmarshal(raw, &cp); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.drafts[d.ID] = cp
	return nil
}

func (s draftStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.drafts, id)
	return nil
}

/* TransactionLister */

type txLister struct{ db *memDB }

func (t txLister) List(context.Context) ([]consumption.Transaction, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	out := make([]consumption.Transaction, len(t.db.txs))
	copy(out, t.db.txs)
	return out, nil
}

/* CatalogStore */

type memCatalog struct {
	companies []catalog.Company
	types     []catalog.MaterialType
}

func (c *memCatalog) CreateCompany(_ context.Context, name string) (*catalog.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.ErrEmptyName
	}
	co := catalog.Company{ID: int64(len(c.companies) + 1), Name: name, Active: true}
	c.companies = append(c.companies, co)
	return &co, nil
}

func (c *memCatalog) ListCompanies(context.Context) ([]catalog.Company, error) {
	return c.companies, nil
}

func (c *memCatalog) CreateMaterialType(_ context.Context, name string) (*catalog.MaterialType, error) {
	if strings.TrimSpace(name) == "" {
		return nil, catalog.ErrEmptyName
	}
	mt := catalog.MaterialType{ID: int64(len(c.types) + 1), Name: name, Active: true}
	c.types = append(c.types, mt)
	return &mt, nil
}

func (c *memCatalog) ListMaterialTypes(context.Context) ([]catalog.MaterialType, error) {
	return c.types, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memDB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	db := newMemDB()
	clock := func() time.Time { return time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC) }

	ledger := materials.NewLedger(db, log, materials.WithClock(clock), materials.WithMetrics(metrics.Nop()))
	engine := issuance.NewEngine(ledger, issuanceStore{db}, draftStore{db}, log, issuance.WithClock(clock))
	svc := stock.NewService(ledger, txLister{db}, log, metrics.Nop(), 10, time.UTC)

	r := NewRouter(Deps{
		Catalog:      &memCatalog{},
		Ledger:       ledger,
		Issuance:     engine,
		Stock:        svc,
		Transactions: txLister{db},
		Log:          log,
		Location:     time.UTC,
	})
	return r, db
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: bad json %q", method, path, w.Body.String())
		}
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
	w, _ = do(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("metrics exposed when disabled: %d", w.Code)
	}
}

func TestCatalog(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := do(t, r, http.MethodPost, "/api/catalog/companies", map[string]string{"name": "Sun Paper"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create company = %d", w.Code)
	}
	w, env := do(t, r, http.MethodPost, "/api/catalog/companies", map[string]string{"name": " "})
	if w.Code != http.StatusBadRequest || env.Code != 40000 {
		t.Errorf("empty name = %d / %d", w.Code, env.Code)
	}
	_, env = do(t, r, http.MethodGet, "/api/catalog/companies", nil)
	var cs []catalog.Company
	decode(t, env.Data, &cs)
	if len(cs) != 1 || cs[0].Name != "Sun Paper" {
		t.Errorf("companies = %+v", cs)
	}
}

func createLots(t *testing.T, r http.Handler) []materials.Lot {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/lots", map[string]interface{}{
		"company":       "Sun Paper",
		"material_type": "PP Silver",
		"paper_size":    "400",
		"date":          "2025-01-05",
		"rows": []map[string]interface{}{
			{"running_meter": 500, "rolls": 2},
			{"running_meter": 250, "rolls": 2},
			{"running_meter": 100}, // без рулонов, пропускается
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create lots = %d %s", w.Code, w.Body.String())
	}
	var lots []materials.Lot
	decode(t, env.Data, &lots)
	return lots
}

func TestLotsCRUD(t *testing.T) {
	r, _ := newTestRouter(t)
	lots := createLots(t, r)
	if len(lots) != 2 || lots[0].PaperCode != "SUP25-001" || lots[1].PaperCode != "SUP25-002" {
		t.Fatalf("lots = %+v", lots)
	}
	if lots[0].TotalQty != 1000 || lots[1].AvailableQty != 500 {
		t.Errorf("quantities = %+v", lots)
	}

	w, _ := do(t, r, http.MethodPost, "/api/lots", map[string]interface{}{
		"material_type": "PP Silver",
		"rows":          []map[string]interface{}{{"running_meter": 1, "rolls": 1}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing company = %d", w.Code)
	}

	w, env := do(t, r, http.MethodGet, "/api/lots/1", nil)
	var lot materials.Lot
	decode(t, env.Data, &lot)
	if w.Code != http.StatusOK || lot.PaperCode != "SUP25-001" {
		t.Errorf("get = %d %+v", w.Code, lot)
	}

	w, env = do(t, r, http.MethodPut, "/api/lots/1", map[string]interface{}{"running_meter": 600, "rolls": 2})
	decode(t, env.Data, &lot)
	if w.Code != http.StatusOK || lot.TotalQty != 1200 || lot.AvailableQty != 1200 {
		t.Errorf("update = %d %+v", w.Code, lot)
	}

	w, _ = do(t, r, http.MethodGet, "/api/lots/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d", w.Code)
	}
	w, _ = do(t, r, http.MethodDelete, "/api/lots/2", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	w, env = do(t, r, http.MethodGet, "/api/lots/2", nil)
	if w.Code != http.StatusNotFound || env.Code != 40400 {
		t.Errorf("deleted lot = %d / %d", w.Code, env.Code)
	}

	_, env = do(t, r, http.MethodGet, "/api/lots?search=sup25", nil)
	var page materials.LotPage
	decode(t, env.Data, &page)
	if page.Total != 1 || page.Page != 1 {
		t.Errorf("list = %+v", page)
	}
}

func TestIssuanceDraftFlow(t *testing.T) {
	r, db := newTestRouter(t)
	createLots(t, r)

	w, env := do(t, r, http.MethodPost, "/api/issue-requests", map[string]interface{}{
		"job_card_no":   "JC-001",
		"job_name":      "Visiting Card Printing",
		"company":       "Sun Paper",
		"material_type": "PP Silver",
		"paper_size":    "400",
		"required_qty":  150,
		"request_date":  "2025-01-10",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create request = %d %s", w.Code, w.Body.String())
	}
	var req issuance.Request
	decode(t, env.Data, &req)

	_, env = do(t, r, http.MethodGet, "/api/issuance/match?company=Sun+Paper&material_type=PP+Silver&paper_size=400", nil)
	var pools issuance.Pools
	decode(t, env.Data, &pools)
	if len(pools.Raw) != 2 {
		t.Fatalf("matched = %+v", pools.Raw)
	}

	w, env = do(t, r, http.MethodPost, "/api/issuance/drafts", map[string]interface{}{"request_id": req.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("open draft = %d %s", w.Code, w.Body.String())
	}
	var d struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, env.Data, &d)
	base := "/api/issuance/drafts/" + d.ID.String()

	do(t, r, http.MethodPost, base+"/toggle", map[string]int64{"lot_id": 1})
	do(t, r, http.MethodPost, base+"/toggle", map[string]int64{"lot_id": 2})
	do(t, r, http.MethodPut, base+"/lots/1", map[string]float64{"qty": 100})
	w, _ = do(t, r, http.MethodPut, base+"/lots/2", map[string]float64{"qty": 501})
	if w.Code != http.StatusOK {
		t.Fatalf("set qty = %d", w.Code)
	}

	// перевыдача: 409 и ни один лот не тронут
	w, env = do(t, r, http.MethodPost, base+"/commit", nil)
	if w.Code != http.StatusConflict || env.Code != 40900 {
		t.Fatalf("over issue = %d %s", w.Code, w.Body.String())
	}
	if db.lots[1].AvailableQty != 1000 || db.lots[2].AvailableQty != 500 {
		t.Fatalf("partial decrement: %v %v", db.lots[1].AvailableQty, db.lots[2].AvailableQty)
	}

	do(t, r, http.MethodPut, base+"/lots/2", map[string]float64{"qty": 50})
	w, env = do(t, r, http.MethodPost, base+"/commit", map[string]float64{"waste_qty": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("commit = %d %s", w.Code, w.Body.String())
	}
	var rc issuance.Receipt
	decode(t, env.Data, &rc)
	if rc.TotalIssued != 150 || rc.Transaction.PaperCodes != "SUP25-001, SUP25-002" {
		t.Errorf("receipt = %+v", rc)
	}
	if db.lots[1].AvailableQty != 900 || db.lots[2].AvailableQty != 450 {
		t.Errorf("available = %v %v", db.lots[1].AvailableQty, db.lots[2].AvailableQty)
	}

	w, _ = do(t, r, http.MethodGet, base, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("draft after commit = %d", w.Code)
	}
	w, _ = do(t, r, http.MethodPost, "/api/issuance/drafts", map[string]interface{}{"request_id": req.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("reissue = %d", w.Code)
	}
	w, _ = do(t, r, http.MethodGet, "/api/issuance/drafts/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad draft id = %d", w.Code)
	}
	w, _ = do(t, r, http.MethodPost, "/api/issuance/drafts", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("draft without company = %d", w.Code)
	}

	_, env = do(t, r, http.MethodGet, "/api/transactions?code=SUP25-002", nil)
	var txs []consumption.Transaction
	decode(t, env.Data, &txs)
	if len(txs) != 1 || txs[0].UsedQty != 150 || txs[0].WasteQty != 3 {
		t.Errorf("transactions = %+v", txs)
	}
}

func TestStockReportAndExport(t *testing.T) {
	r, _ := newTestRouter(t)
	createLots(t, r)
	do(t, r, http.MethodPost, "/api/lots/outputs", map[string]interface{}{
		"category": "WIP", "company": "Sun Paper", "material_type": "PP Silver",
		"paper_size": "400", "qty": 60, "source_job_card": "JC-001", "source_stage": "Lamination",
	})

	w, env := do(t, r, http.MethodGet, "/api/stock?category=WIP", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stock = %d %s", w.Code, w.Body.String())
	}
	var page struct {
		Rows      []stock.Row `json:"rows"`
		TotalRows int         `json:"total_rows"`
	}
	decode(t, env.Data, &page)
	if page.TotalRows != 1 || page.Rows[0].PaperCode != "SUW25-001" || page.Rows[0].MaterialIn != 60 {
		t.Errorf("wip rows = %+v", page)
	}

	w, _ = do(t, r, http.MethodGet, "/api/stock?category=PAPER", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad category = %d", w.Code)
	}
	w, _ = do(t, r, http.MethodGet, "/api/stock?from=05-01-2025", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/api/stock/export.csv?category=RAW", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("csv = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "stock-report-") || !strings.Contains(cd, ".csv") {
		t.Errorf("disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Date,Paper Code,") {
		t.Errorf("csv body = %q", w.Body.String())
	}

	w, _ = do(t, r, http.MethodGet, "/api/stock/export.xlsx", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType || w.Body.Len() == 0 {
		t.Errorf("xlsx = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}
