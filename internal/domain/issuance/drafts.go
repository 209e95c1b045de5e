package issuance

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Spok95/paperstock/internal/infra/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DraftRepo хранит черновики выдачи как JSON, один ряд на черновик.
type DraftRepo struct {
	pool db.Pool
}

func NewDraftRepo(pool db.Pool) *DraftRepo { return &DraftRepo{pool: pool} }

func (r *DraftRepo) Get(ctx context.Context, id uuid.UUID) (*Draft, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM issue_drafts WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d, err := decodeDraft(raw)
	if err != nil {
		return nil, err
	}
	d.ID = id
	return d, nil
}

func (r *DraftRepo) Save(ctx context.Context, d *Draft) error {
	raw, err := encodeDraft(d)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO issue_drafts (id, payload, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (id) DO UPDATE SET
		  payload=$2, updated_at=now()
	`, d.ID, raw)
	return err
}

func (r *DraftRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM issue_drafts WHERE id = $1`, id)
	return err
}

func encodeDraft(d *Draft) ([]byte, error) {
	return json.Marshal(d)
}

func decodeDraft(raw []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if d.Selection == nil {
		d.Selection = NewSelection()
	}
	return &d, nil
}
