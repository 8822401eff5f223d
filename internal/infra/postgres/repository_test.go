package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/postgres"
)

// --- Mocks ---

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	tag   string
	err   error
	calls []execCall
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(f.tag), f.err
}

// --- Tests ---

func TestDeleteClosing_NoRowsIsNotFound(t *testing.T) {
	db := &fakeDB{tag: "DELETE 0"}
	repo := postgres.NewRepository(db)

	err := repo.DeleteClosing(context.Background(), "agent-1", "c1")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "closing", nf.Resource)
	require.Len(t, db.calls, 1)
	assert.Equal(t, []any{"c1", "agent-1"}, db.calls[0].args)
}

func TestInsertActivity_NullsEmptyOptionals(t *testing.T) {
	db := &fakeDB{tag: "INSERT 0 1"}
	repo := postgres.NewRepository(db)

	err := repo.InsertActivity(context.Background(), "agent-1", &domain.Activity{
		ID: "a1", Date: "2024-05-01", Type: domain.ActivityACM,
	})

	require.NoError(t, err)
	args := db.calls[0].args
	assert.Equal(t, "a1", args[0])
	assert.Equal(t, "agent-1", args[1])
	assert.Equal(t, "acm", args[3])
	assert.Nil(t, args[4])
}

func TestExecError_IsExternalService(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	repo := postgres.NewRepository(db)

	err := repo.UpsertGoals(context.Background(), "agent-1", &domain.FinancialGoals{Year: 2024})

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "postgres/UpsertGoals", ext.Service)
}

func TestLoadRecords_QueryError(t *testing.T) {
	repo := postgres.NewRepository(&fakeDB{})

	_, err := repo.LoadRecords(context.Background(), "agent-1")

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
}

func TestPing(t *testing.T) {
	db := &fakeDB{tag: "SELECT 1"}
	require.NoError(t, postgres.NewRepository(db).Ping(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Equal(t, "SELECT 1", db.calls[0].sql)

	db.err = errors.New("connection refused")
	var ext *domain.ErrExternalService
	assert.ErrorAs(t, postgres.NewRepository(db).Ping(context.Background()), &ext)
}
