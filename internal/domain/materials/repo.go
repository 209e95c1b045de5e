package materials

import (
	"context"
	"errors"

	"github.com/Spok95/paperstock/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ pool db.Pool }

func NewRepo(pool db.Pool) *Repo { return &Repo{pool: pool} }

const lotColumns = `
	id, company, material_type, paper_size, paper_code, product_code, category,
	running_meter, rolls, total_qty, available_qty, rack, entry_date,
	source_job_card, source_stage, job_name, active, created_at, updated_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanLot(s scanner) (Lot, error) {
	var m Lot
	err := s.Scan(
		&m.ID,
		&m.Company,
		&m.MaterialType,
		&m.PaperSize,
		&m.PaperCode,
		&m.ProductCode,
		&m.Category,
		&m.RunningMeter,
		&m.Rolls,
		&m.TotalQty,
		&m.AvailableQty,
		&m.Rack,
		&m.Date,
		&m.SourceJobCard,
		&m.SourceStage,
		&m.JobName,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// allocateSequence берёт следующий номер из счётчика префикса. Строка
// счётчика блокируется до конца транзакции, поэтому параллельные
// создатели получают разные номера. Первый раз счётчик засевается
// максимумом из уже существующих кодов.
func allocateSequence(ctx context.Context, tx pgx.Tx, prefix string) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		UPDATE paper_code_counters SET last_seq = last_seq + 1
		WHERE prefix = $1
		RETURNING last_seq
	`, prefix).Scan(&seq)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	rows, err := tx.Query(ctx, `SELECT paper_code FROM lots WHERE starts_with(paper_code, $1)`, prefix)
	if err != nil {
		return 0, err
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, err
	}
	seed := MaxSequence(prefix, codes)

	if _, err := tx.Exec(ctx, `
		INSERT INTO paper_code_counters (prefix, last_seq) VALUES ($1, $2)
		ON CONFLICT (prefix) DO NOTHING
	`, prefix, seed); err != nil {
		return 0, err
	}
	err = tx.QueryRow(ctx, `
		UPDATE paper_code_counters SET last_seq = GREATEST(last_seq, $2) + 1
		WHERE prefix = $1
		RETURNING last_seq
	`, prefix, seed).Scan(&seq)
	return seq, err
}

func (r *Repo) Create(ctx context.Context, lot *Lot, prefix string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	seq, err := allocateSequence(ctx, tx, prefix)
	if err != nil {
		return err
	}
	lot.PaperCode = FormatCode(prefix, seq)

	if err := tx.QueryRow(ctx, `
		INSERT INTO lots (company, material_type, paper_size, paper_code, product_code, category,
		                  running_meter, rolls, total_qty, available_qty, rack, entry_date,
		                  source_job_card, source_stage, job_name, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id, created_at, updated_at
	`,
		lot.Company, lot.MaterialType, lot.PaperSize, lot.PaperCode, lot.ProductCode, string(lot.Category),
		lot.RunningMeter, lot.Rolls, lot.TotalQty, lot.AvailableQty, lot.Rack, lot.Date,
		lot.SourceJobCard, lot.SourceStage, lot.JobName, lot.Active,
	).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id)
	m, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Correct(ctx context.Context, id int64, fn func(*Lot) error) (*Lot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := scanLot(tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := fn(&m); err != nil {
		return nil, err
	}

	// company и category не трогаем
	if err := tx.QueryRow(ctx, `
		UPDATE lots SET material_type=$2, product_code=$3, running_meter=$4, rolls=$5,
		                total_qty=$6, available_qty=$7, entry_date=$8, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, id, m.MaterialType, m.ProductCode, m.RunningMeter, m.Rolls, m.TotalQty, m.AvailableQty, m.Date,
	).Scan(&m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		m, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Match — точное (с учётом регистра) совпадение по трём полям.
func (r *Repo) Match(ctx context.Context, c Category, company, materialType, paperSize string) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+lotColumns+`
		FROM lots
		WHERE category = $1 AND company = $2 AND material_type = $3 AND paper_size = $4
		ORDER BY created_at, id
	`, string(c), company, materialType, paperSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		m, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
