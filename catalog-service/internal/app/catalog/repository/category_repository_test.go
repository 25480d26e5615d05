package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgxFixture(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

var categoryColumns = []string{"id", "name", "created_at"}

func TestCategoryRepository_Create_Success(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := &entity.Category{ID: uuid.New(), Name: "Books", CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO categories").
		WithArgs(c.ID, c.Name, c.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Create_Duplicate(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectExec("INSERT INTO categories").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &entity.Category{ID: uuid.New(), Name: "Books"})

	assert.ErrorIs(t, err, ErrCategoryAlreadyExists)
}

func TestCategoryRepository_GetByID_Success(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	id := uuid.New()
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT id, name, created_at FROM categories WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(categoryColumns).AddRow(id, "Books", createdAt))

	c, err := repo.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "Books", c.Name)
	assert.Equal(t, createdAt, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetByID_NotFound(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, name, created_at FROM categories WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	c, err := repo.GetByID(context.Background(), id)

	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryRepository_GetAll(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, created_at FROM categories ORDER BY name").
		WillReturnRows(pgxmock.NewRows(categoryColumns).
			AddRow(uuid.New(), "Books", now).
			AddRow(uuid.New(), "Games", now))

	categories, err := repo.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Books", categories[0].Name)
	assert.Equal(t, "Games", categories[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Update_NotFound(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := &entity.Category{ID: uuid.New(), Name: "Books"}
	mock.ExpectExec("UPDATE categories SET name").
		WithArgs(c.Name, c.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)

	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryRepository_Delete_HasProducts(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	id := uuid.New()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	err := repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrCategoryHasProducts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Delete_Success(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	id := uuid.New()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM categories").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), id)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Delete_RaceForeignKey(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	id := uuid.New()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM categories").
		WithArgs(id).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrCategoryHasProducts)
}

func TestCategoryRepository_Delete_CountFails(t *testing.T) {
	mock := newPgxFixture(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("connection refused"))

	err := repo.Delete(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check products in category")
}
