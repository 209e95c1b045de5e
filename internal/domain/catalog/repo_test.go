package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return NewRepo(mock), mock
}

func TestKnown(t *testing.T) {
	tests := []struct {
		name         string
		company      string
		materialType string
		dbAnswer     bool
	}{
		{"company and type known", "Sun Paper", "PP Silver", true},
		{"company only", "Sun Paper", "", true},
		{"unknown company", "Unknown", "PP Silver", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(`FROM companies WHERE name = \$1 AND active`).
				WithArgs(tt.company, tt.materialType).
				WillReturnRows(pgxmock.NewRows([]string{"ok"}).AddRow(tt.dbAnswer))

			got, err := repo.Known(context.Background(), tt.company, tt.materialType)
			if err != nil {
				t.Fatalf("Known: %v", err)
			}
			if got != tt.dbAnswer {
				t.Errorf("Known = %v, want %v", got, tt.dbAnswer)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestKnownPropagatesError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT`).WithArgs("Sun Paper", "").WillReturnError(boom)

	if _, err := repo.Known(context.Background(), "Sun Paper", ""); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestCreateCompanyReturnsExisting(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING не возвращает строк
	mock.ExpectQuery(`INSERT INTO companies`).WithArgs("Sun Paper").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "active", "created_at"}))
	mock.ExpectQuery(`FROM companies WHERE name = \$1`).WithArgs("Sun Paper").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "active", "created_at"}).
			AddRow(int64(3), "Sun Paper", true, created))

	c, err := repo.CreateCompany(context.Background(), "  Sun Paper ")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if c == nil || c.ID != 3 {
		t.Fatalf("company = %+v, want id 3", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	if _, err := repo.CreateCompany(context.Background(), "  "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
}
