package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ pool db.Pool }

func NewRepo(pool db.Pool) *Repo { return &Repo{pool: pool} }

// Commit: все лоты блокируются FOR UPDATE в порядке id, остатки проверяются
// и уменьшаются, пишется транзакция consumption, заявка закрывается.
// Любая ошибка — откат целиком.
func (r *Repo) Commit(ctx context.Context, o Order) (*Receipt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.RequestID != nil {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM issue_requests WHERE id = $1 FOR UPDATE`, *o.RequestID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		if RequestStatus(status) == StatusIssued {
			return nil, ErrAlreadyIssued
		}
	}

	results := make(map[int64]LineResult, len(o.Lines))
	for _, l := range SortedLines(o.Lines) {
		if _, dup := results[l.LotID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateLot, l.LotID)
		}
		var code string
		var available float64
		err := tx.QueryRow(ctx, `
			SELECT paper_code, available_qty FROM lots WHERE id = $1 FOR UPDATE
		`, l.LotID).Scan(&code, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrLotNotFound, l.LotID)
		}
		if err != nil {
			return nil, err
		}

		after, err := SettleLine(available, l.Qty, o.AllowOverIssue)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (available %.2f, issued %.2f)", err, code, available, l.Qty)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE lots SET available_qty = $2, updated_at = now() WHERE id = $1
		`, l.LotID, after); err != nil {
			return nil, err
		}
		results[l.LotID] = LineResult{LotID: l.LotID, PaperCode: code, Issued: l.Qty, Before: available, After: after}
	}

	// в записи коды идут в порядке выбора оператором
	rc := &Receipt{Lines: make([]LineResult, 0, len(o.Lines))}
	codes := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		res := results[l.LotID]
		rc.Lines = append(rc.Lines, res)
		codes = append(codes, res.PaperCode)
		rc.TotalIssued += l.Qty
	}
	rc.Transaction = consumption.Transaction{
		PaperCodes:  consumption.JoinCodes(codes),
		JobCardNo:   o.JobCardNo,
		RequestID:   o.RequestID,
		UsedQty:     rc.TotalIssued,
		WasteQty:    o.Outputs.WasteQty,
		LeftoverQty: o.Outputs.LeftoverQty,
		WIPQty:      o.Outputs.WIPQty,
	}
	if err := consumption.Insert(ctx, tx, &rc.Transaction); err != nil {
		return nil, err
	}

	if o.RequestID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE issue_requests SET status = $2, updated_at = now() WHERE id = $1
		`, *o.RequestID, string(StatusIssued)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rc, nil
}

const requestColumns = `
	id, job_card_no, job_name, paper_size, requested_material, material_type, company,
	request_type, required_qty, request_date, allot_date, status, created_at
`

func scanRequest(s interface{ Scan(...any) error }) (Request, error) {
	var q Request
	err := s.Scan(
		&q.ID,
		&q.JobCardNo,
		&q.JobName,
		&q.PaperSize,
		&q.RequestedMaterial,
		&q.MaterialType,
		&q.Company,
		&q.RequestType,
		&q.RequiredQty,
		&q.RequestDate,
		&q.AllotDate,
		&q.Status,
		&q.CreatedAt,
	)
	return q, err
}

func (r *Repo) CreateRequest(ctx context.Context, q *Request) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO issue_requests
		(job_card_no, job_name, paper_size, requested_material, material_type, company,
		 request_type, required_qty, request_date, allot_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`, q.JobCardNo, q.JobName, q.PaperSize, q.RequestedMaterial, q.MaterialType, q.Company,
		q.RequestType, q.RequiredQty, q.RequestDate, q.AllotDate, string(q.Status),
	).Scan(&q.ID, &q.CreatedAt)
}

func (r *Repo) GetRequest(ctx context.Context, id int64) (*Request, error) {
	q, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM issue_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *Repo) ListRequests(ctx context.Context) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM issue_requests
		ORDER BY request_date DESC NULLS LAST, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
