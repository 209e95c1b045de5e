package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/Spok95/paperstock/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

var ErrEmptyName = errors.New("catalog: name is required")

type Repo struct{ pool db.Pool }

func NewRepo(pool db.Pool) *Repo { return &Repo{pool: pool} }

/* Companies */

func (r *Repo) CreateCompany(ctx context.Context, name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, active, created_at
	`, name)
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// уже есть — вернём существующую
		return r.GetCompanyByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetCompanyByName(ctx context.Context, name string) (*Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, active, created_at
		FROM companies WHERE name = $1
	`, name)
	var c Company
	if err := row.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, active, created_at
		FROM companies
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

/* Material types */

func (r *Repo) CreateMaterialType(ctx context.Context, name string) (*MaterialType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO material_types (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, active, created_at
	`, name)
	var m MaterialType
	err := row.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.getMaterialTypeByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) getMaterialTypeByName(ctx context.Context, name string) (*MaterialType, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, active, created_at
		FROM material_types WHERE name = $1
	`, name)
	var m MaterialType
	if err := row.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, active, created_at
		FROM material_types
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaterialType
	for rows.Next() {
		var m MaterialType
		if err := rows.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Known проверяет, что компания и тип материала есть в справочнике.
// Пустой справочник ничего не ограничивает.
func (r *Repo) Known(ctx context.Context, company, materialType string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT
			(NOT EXISTS (SELECT 1 FROM companies) OR EXISTS (SELECT 1 FROM companies WHERE name = $1 AND active))
			AND
			($2 = '' OR NOT EXISTS (SELECT 1 FROM material_types) OR EXISTS (SELECT 1 FROM material_types WHERE name = $2 AND active))
	`, company, materialType).Scan(&ok)
	return ok, err
}
