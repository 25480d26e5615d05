package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/reaction"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ReactionRepositoryTestSuite тестовый suite для транзакционного переключения реакций
type ReactionRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	mock     sqlmock.Sqlmock
	sqlDB    *sql.DB
	products ReactionRepository
	reviews  ReactionRepository
}

func TestReactionRepositorySuite(t *testing.T) {
	suite.Run(t, new(ReactionRepositoryTestSuite))
}

func (s *ReactionRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.products = NewReactionRepository(s.db, ProductReactions)
	s.reviews = NewReactionRepository(s.db, ReviewReactions)
}

func (s *ReactionRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

const (
	lockProductSQL     = `SELECT id FROM products WHERE id = $1 FOR UPDATE`
	productEdgesSQL    = `SELECT product_id AS entity_id, user_id, kind FROM product_reactions WHERE product_id = $1`
	deleteProductEdge  = `DELETE FROM product_reactions WHERE product_id = $1 AND user_id = $2`
	insertProductEdge  = `INSERT INTO product_reactions (product_id, user_id, kind, created_at) VALUES ($1, $2, $3, $4)`
	productCountersSQL = `UPDATE products SET likes_count = $1, dislikes_count = $2, is_best_rated = $3, is_worst_rated = $4, version = version + 1 WHERE id = $5`
	reconcileCountSQL  = `UPDATE products SET likes_count = $1, dislikes_count = $2, is_best_rated = $3, is_worst_rated = $4, version = version + 1 WHERE id = $5 AND version = $6`
)

func edgeColumns() []string {
	return []string{"entity_id", "user_id", "kind"}
}

func (s *ReactionRepositoryTestSuite) expectLock(productID uuid.UUID) {
	s.mock.ExpectQuery(regexp.QuoteMeta(lockProductSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(productID.String()))
}

// ===================== Toggle Tests =====================

func (s *ReactionRepositoryTestSuite) TestToggle_AddsLikeOnFreshProduct() {
	ctx := context.Background()
	productID := uuid.New()
	userID := uuid.New()

	s.mock.ExpectBegin()
	s.expectLock(productID)
	s.mock.ExpectQuery(regexp.QuoteMeta(productEdgesSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows(edgeColumns()))
	s.mock.ExpectExec(regexp.QuoteMeta(insertProductEdge)).
		WithArgs(productID, userID, "LIKE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(productCountersSQL)).
		WithArgs(1, 0, true, false, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	out, err := s.products.Toggle(ctx, productID, userID, entity.ReactionLike)

	// Assert
	s.NoError(err)
	s.Equal(reaction.ChangeAdded, out.Change)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestToggle_SameKindRemovesEdge() {
	ctx := context.Background()
	productID := uuid.New()
	userID := uuid.New()
	otherID := uuid.New()

	s.mock.ExpectBegin()
	s.expectLock(productID)
	s.mock.ExpectQuery(regexp.QuoteMeta(productEdgesSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows(edgeColumns()).
			AddRow(productID.String(), userID.String(), "LIKE").
			AddRow(productID.String(), otherID.String(), "LIKE"))
	s.mock.ExpectExec(regexp.QuoteMeta(deleteProductEdge)).
		WithArgs(productID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(productCountersSQL)).
		WithArgs(1, 0, true, false, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	out, err := s.products.Toggle(ctx, productID, userID, entity.ReactionLike)

	// Assert
	s.NoError(err)
	s.Equal(reaction.ChangeRemoved, out.Change)
	s.NoError(s.mock.ExpectationsWereMet())
}

// Дизлайк поверх лайка: удаление и вставка в одной транзакции, удаление первым
func (s *ReactionRepositoryTestSuite) TestToggle_OppositeKindSwitchesInOneTransaction() {
	ctx := context.Background()
	productID := uuid.New()
	userID := uuid.New()

	s.mock.ExpectBegin()
	s.expectLock(productID)
	s.mock.ExpectQuery(regexp.QuoteMeta(productEdgesSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows(edgeColumns()).AddRow(productID.String(), userID.String(), "LIKE"))
	s.mock.ExpectExec(regexp.QuoteMeta(deleteProductEdge)).
		WithArgs(productID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(insertProductEdge)).
		WithArgs(productID, userID, "DISLIKE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(productCountersSQL)).
		WithArgs(0, 1, false, true, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	out, err := s.products.Toggle(ctx, productID, userID, entity.ReactionDislike)

	// Assert
	s.NoError(err)
	s.Equal(reaction.ChangeSwitched, out.Change)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestToggle_EntityNotFound() {
	ctx := context.Background()
	productID := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(lockProductSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectRollback()

	// Act
	_, err := s.products.Toggle(ctx, productID, uuid.New(), entity.ReactionLike)

	// Assert
	s.ErrorIs(err, ErrEntityNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestToggle_InsertFailsRollsBack() {
	ctx := context.Background()
	productID := uuid.New()
	userID := uuid.New()

	s.mock.ExpectBegin()
	s.expectLock(productID)
	s.mock.ExpectQuery(regexp.QuoteMeta(productEdgesSQL)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows(edgeColumns()))
	s.mock.ExpectExec(regexp.QuoteMeta(insertProductEdge)).
		WillReturnError(errors.New("connection reset"))
	s.mock.ExpectRollback()

	// Act
	_, err := s.products.Toggle(ctx, productID, userID, entity.ReactionLike)

	// Assert
	s.Error(err)
	s.Contains(err.Error(), "failed to insert reaction")
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestToggle_ReviewTargetUsesReviewTables() {
	ctx := context.Background()
	reviewID := uuid.New()
	userID := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM reviews WHERE id = $1 FOR UPDATE`)).
		WithArgs(reviewID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(reviewID.String()))
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT review_id AS entity_id, user_id, kind FROM review_reactions WHERE review_id = $1`)).
		WithArgs(reviewID).
		WillReturnRows(sqlmock.NewRows(edgeColumns()))
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO review_reactions (review_id, user_id, kind, created_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs(reviewID, userID, "DISLIKE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE reviews SET likes_count = $1`)).
		WithArgs(0, 1, false, true, reviewID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	out, err := s.reviews.Toggle(ctx, reviewID, userID, entity.ReactionDislike)

	// Assert
	s.NoError(err)
	s.Equal(reaction.ChangeAdded, out.Change)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== FindAllWithEdges / SaveCounters Tests =====================

func (s *ReactionRepositoryTestSuite) TestFindAllWithEdges_GroupsEdgesByEntity() {
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()
	u1, u2 := uuid.New(), uuid.New()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, likes_count, dislikes_count, is_best_rated, is_worst_rated, version FROM products ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count", "dislikes_count", "is_best_rated", "is_worst_rated", "version"}).
			AddRow(p1.String(), 0, 0, true, false, 4).
			AddRow(p2.String(), 3, 0, true, false, 7))
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT product_id AS entity_id, user_id, kind FROM product_reactions`)).
		WillReturnRows(sqlmock.NewRows(edgeColumns()).
			AddRow(p1.String(), u1.String(), "LIKE").
			AddRow(p1.String(), u2.String(), "DISLIKE"))

	// Act
	snapshots, err := s.products.FindAllWithEdges(ctx)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(snapshots, 2)

	s.Equal(p1, snapshots[0].EntityID)
	s.Equal(int64(4), snapshots[0].Version)
	s.Len(snapshots[0].Edges, 2)
	actual, drifted := snapshots[0].Drifted()
	s.True(drifted)
	s.Equal(reaction.Derive(1, 1), actual)

	s.Equal(p2, snapshots[1].EntityID)
	s.Empty(snapshots[1].Edges)
	s.Equal(3, snapshots[1].Stored.LikesCount)
	s.Equal(int64(7), snapshots[1].Version)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestSaveCounters_OneTransaction() {
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WithArgs(1, 1, true, false, p1, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WithArgs(2, 0, true, false, p2, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	saved, err := s.products.SaveCounters(ctx, []CounterUpdate{
		{EntityID: p1, Reactions: reaction.Derive(1, 1), Version: 3},
		{EntityID: p2, Reactions: reaction.Derive(2, 0), Version: 9},
	})

	// Assert
	s.NoError(err)
	s.Equal(2, saved)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestSaveCounters_SkipsRowsChangedSinceSnapshot() {
	// Arrange - снимок видел likes=0 при одном LIKE (version 5), затем лайк сняли:
	// version стала 6, и запись сверки не должна вернуть likes=1
	ctx := context.Background()
	changed, deleted, stable := uuid.New(), uuid.New(), uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WithArgs(1, 0, true, false, changed, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WithArgs(0, 0, true, false, deleted, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WithArgs(0, 2, false, true, stable, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	saved, err := s.products.SaveCounters(ctx, []CounterUpdate{
		{EntityID: changed, Reactions: reaction.Derive(1, 0), Version: 5},
		{EntityID: deleted, Reactions: reaction.Derive(0, 0), Version: 1},
		{EntityID: stable, Reactions: reaction.Derive(0, 2), Version: 2},
	})

	// Assert
	s.NoError(err)
	s.Equal(1, saved)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestSaveCounters_RollsBackOnError() {
	ctx := context.Background()
	id := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(reconcileCountSQL)).
		WillReturnError(errors.New("deadlock detected"))
	s.mock.ExpectRollback()

	saved, err := s.products.SaveCounters(ctx, []CounterUpdate{
		{EntityID: id, Reactions: reaction.Derive(1, 0), Version: 1},
	})

	s.Error(err)
	s.Equal(0, saved)
	s.Contains(err.Error(), "failed to save product counters")
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReactionRepositoryTestSuite) TestSaveCounters_EmptyIsNoop() {
	saved, err := s.products.SaveCounters(context.Background(), nil)

	s.NoError(err)
	s.Zero(saved)
	s.NoError(s.mock.ExpectationsWereMet())
}
