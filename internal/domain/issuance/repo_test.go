package issuance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

const (
	lockRequestSQL  = `SELECT status FROM issue_requests WHERE id = \$1 FOR UPDATE`
	lockLotSQL      = `SELECT paper_code, available_qty FROM lots WHERE id = \$1 FOR UPDATE`
	updateLotSQL    = `UPDATE lots SET available_qty = \$2`
	insertTxSQL     = `INSERT INTO material_transactions`
	closeRequestSQL = `UPDATE issue_requests SET status = \$2`
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

func expectLockLot(mock pgxmock.PgxPoolIface, id int64, code string, available float64) {
	mock.ExpectQuery(lockLotSQL).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"paper_code", "available_qty"}).AddRow(code, available))
}

func expectRequestStatus(mock pgxmock.PgxPoolIface, id int64, status RequestStatus) {
	mock.ExpectQuery(lockRequestSQL).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(string(status)))
}

func TestRepoCommitLocksInIDOrderAndClosesRequest(t *testing.T) {
	repo, mock := newMockRepo(t)
	reqID := int64(10)
	created := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectRequestStatus(mock, reqID, StatusPending)
	// оператор выбрал 2, потом 1; блокируются по возрастанию id
	expectLockLot(mock, 1, "SUP25-001", 200)
	mock.ExpectExec(updateLotSQL).WithArgs(int64(1), 100.0).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectLockLot(mock, 2, "SUP25-002", 80)
	mock.ExpectExec(updateLotSQL).WithArgs(int64(2), 30.0).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(insertTxSQL).
		WithArgs("SUP25-002, SUP25-001", "JC-001", pgxmock.AnyArg(), 150.0, 5.0, 0.0, 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))
	mock.ExpectExec(closeRequestSQL).WithArgs(reqID, string(StatusIssued)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	rc, err := repo.Commit(context.Background(), Order{
		RequestID: &reqID,
		JobCardNo: "JC-001",
		Lines:     []Line{{LotID: 2, Qty: 50}, {LotID: 1, Qty: 100}},
		Outputs:   Outputs{WasteQty: 5},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if rc.TotalIssued != 150 || rc.Transaction.ID != 7 {
		t.Errorf("receipt total %v tx %d", rc.TotalIssued, rc.Transaction.ID)
	}
	if len(rc.Lines) != 2 || rc.Lines[0].PaperCode != "SUP25-002" || rc.Lines[0].After != 30 {
		t.Errorf("lines = %+v", rc.Lines)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRepoCommitRollsBack(t *testing.T) {
	tests := []struct {
		name   string
		order  Order
		expect func(pgxmock.PgxPoolIface)
		want   error
	}{
		{
			name:  "later line over-issues",
			order: Order{JobCardNo: "JC-002", Lines: []Line{{LotID: 1, Qty: 100}, {LotID: 2, Qty: 90}}},
			expect: func(mock pgxmock.PgxPoolIface) {
				expectLockLot(mock, 1, "SUP25-001", 200)
				mock.ExpectExec(updateLotSQL).WithArgs(int64(1), 100.0).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				expectLockLot(mock, 2, "SUP25-002", 80)
			},
			want: ErrOverIssue,
		},
		{
			name:  "same lot twice",
			order: Order{JobCardNo: "JC-003", Lines: []Line{{LotID: 1, Qty: 50}, {LotID: 1, Qty: 20}}},
			expect: func(mock pgxmock.PgxPoolIface) {
				expectLockLot(mock, 1, "SUP25-001", 200)
				mock.ExpectExec(updateLotSQL).WithArgs(int64(1), 150.0).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			want: ErrDuplicateLot,
		},
		{
			name:  "lot deleted meanwhile",
			order: Order{JobCardNo: "JC-004", Lines: []Line{{LotID: 9, Qty: 1}}},
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(lockLotSQL).WithArgs(int64(9)).
					WillReturnRows(pgxmock.NewRows([]string{"paper_code", "available_qty"}))
			},
			want: ErrLotNotFound,
		},
		{
			name:  "request already issued",
			order: Order{RequestID: ptr(int64(10)), JobCardNo: "JC-001", Lines: []Line{{LotID: 1, Qty: 1}}},
			expect: func(mock pgxmock.PgxPoolIface) {
				expectRequestStatus(mock, 10, StatusIssued)
			},
			want: ErrAlreadyIssued,
		},
		{
			name:  "request missing",
			order: Order{RequestID: ptr(int64(11)), JobCardNo: "JC-001", Lines: []Line{{LotID: 1, Qty: 1}}},
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(lockRequestSQL).WithArgs(int64(11)).
					WillReturnRows(pgxmock.NewRows([]string{"status"}))
			},
			want: ErrRequestNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectBegin()
			tt.expect(mock)
			mock.ExpectRollback()

			rc, err := repo.Commit(context.Background(), tt.order)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if rc != nil {
				t.Errorf("receipt = %+v, want nil", rc)
			}
			// ни транзакции consumption, ни COMMIT
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
