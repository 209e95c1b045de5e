package consumption

import (
	"context"

	"github.com/Spok95/paperstock/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ pool db.Pool }

func NewRepo(pool db.Pool) *Repo { return &Repo{pool: pool} }

// Insert пишет транзакцию внутри уже открытой tx (вместе со списанием лотов).
func Insert(ctx context.Context, tx pgx.Tx, t *Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO material_transactions
		(paper_codes, job_card_no, request_id, used_qty, waste_qty, leftover_qty, wip_qty)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, t.PaperCodes, t.JobCardNo, t.RequestID, t.UsedQty, t.WasteQty, t.LeftoverQty, t.WIPQty,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *Repo) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, paper_codes, job_card_no, request_id, used_qty, waste_qty, leftover_qty, wip_qty, created_at
		FROM material_transactions
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID,
			&t.PaperCodes,
			&t.JobCardNo,
			&t.RequestID,
			&t.UsedQty,
			&t.WasteQty,
			&t.LeftoverQty,
			&t.WIPQty,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
