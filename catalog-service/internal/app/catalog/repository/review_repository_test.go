package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormRepositoryTestSuite покрывает GORM-репозитории товаров и отзывов
type GormRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	mock     sqlmock.Sqlmock
	sqlDB    *sql.DB
	reviews  ReviewRepository
	products ProductRepository
}

func TestGormRepositorySuite(t *testing.T) {
	suite.Run(t, new(GormRepositoryTestSuite))
}

func (s *GormRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.reviews = NewReviewRepository(s.db)
	s.products = NewProductRepository(s.db)
}

func (s *GormRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

// ===================== Reviews =====================

func (s *GormRepositoryTestSuite) TestGetVisibleRatings_ExcludesHidden() {
	ctx := context.Background()
	productID := uuid.New()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "rating" FROM "reviews" WHERE product_id = $1 AND hidden = $2`)).
		WithArgs(productID, false).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(4.0).AddRow(5.0).AddRow(3.0))

	// Act
	ratings, err := s.reviews.GetVisibleRatings(ctx, productID)

	// Assert
	s.NoError(err)
	s.Equal([]float64{4, 5, 3}, ratings)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *GormRepositoryTestSuite) TestGetVisibleRatings_NoReviews() {
	productID := uuid.New()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "rating" FROM "reviews"`)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}))

	ratings, err := s.reviews.GetVisibleRatings(context.Background(), productID)

	s.NoError(err)
	s.Empty(ratings)
}

func (s *GormRepositoryTestSuite) TestGetVisibleRatings_DBError() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "rating" FROM "reviews"`)).
		WillReturnError(sql.ErrConnDone)

	ratings, err := s.reviews.GetVisibleRatings(context.Background(), uuid.New())

	s.Error(err)
	s.Nil(ratings)
	s.Contains(err.Error(), "failed to get review ratings")
}

func (s *GormRepositoryTestSuite) TestReviewGetByID_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE id = $1`)).
		WillReturnError(gorm.ErrRecordNotFound)

	review, err := s.reviews.GetByID(context.Background(), uuid.New())

	s.ErrorIs(err, ErrReviewNotFound)
	s.Nil(review)
}

func (s *GormRepositoryTestSuite) TestSetHidden_NotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reviews" SET "hidden"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.reviews.SetHidden(context.Background(), uuid.New(), true)

	s.ErrorIs(err, ErrReviewNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *GormRepositoryTestSuite) TestReviewDelete_Success() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reviews" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.reviews.Delete(context.Background(), uuid.New()))
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Products =====================

func (s *GormRepositoryTestSuite) TestUpdateRatingStats_Success() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "average_rating"=$1,"reviews_count"=$2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.products.UpdateRatingStats(context.Background(), uuid.New(), 3, 4.0)

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *GormRepositoryTestSuite) TestUpdateRatingStats_ProductMissing() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.products.UpdateRatingStats(context.Background(), uuid.New(), 0, 0)

	s.ErrorIs(err, ErrProductNotFound)
}

func (s *GormRepositoryTestSuite) TestProductGetByID_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1`)).
		WillReturnError(gorm.ErrRecordNotFound)

	product, err := s.products.GetByID(context.Background(), uuid.New())

	s.ErrorIs(err, ErrProductNotFound)
	s.Nil(product)
}

func (s *GormRepositoryTestSuite) TestProductDelete_NotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.products.Delete(context.Background(), uuid.New())

	s.ErrorIs(err, ErrProductNotFound)
}
