package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var conditionalUpdate = `UPDATE "orders" SET .* WHERE \(order_code = \$\d+ AND payment_status = \$\d+\) AND "orders"\."deleted_at" IS NULL`

func paidTransition() repository.PaymentTransition {
	return repository.PaymentTransition{
		To:     models.PaymentStatusPaid,
		Status: models.OrderStatusProcessing,
		Details: models.PaymentDetails{
			Provider:      models.ProviderA,
			TransactionID: "14226112",
			Channel:       models.ChannelServerPush,
			ResponseCode:  "00",
			ProcessedAt:   ptrTime(time.Now().UTC()),
		},
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestGormTransitionPayment_Winner(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalUpdate).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	won, err := repo.TransitionPayment(context.Background(), "ORD-1001", paidTransition())
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransitionPayment_AlreadyTerminal(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalUpdate).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	won, err := repo.TransitionPayment(context.Background(), "ORD-1001", paidTransition())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestGormTransitionPayment_FailedKeepsOrderStatus(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	// seven payment columns plus updated_at, no status column
	mock.ExpectExec(`UPDATE "orders" SET "payment_channel"=\$1,.*"updated_at"=\$8 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tr := paidTransition()
	tr.To = models.PaymentStatusFailed
	tr.Status = ""
	won, err := repo.TransitionPayment(context.Background(), "ORD-1002", tr)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransitionPayment_Errors(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	_, err := repo.TransitionPayment(context.Background(), "ORD-1001", repository.PaymentTransition{To: models.PaymentStatusUnpaid})
	assert.Error(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalUpdate).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	_, err = repo.TransitionPayment(context.Background(), "ORD-1001", paidTransition())
	assert.ErrorContains(t, err, "connection reset")
}

func TestGormFindByCode_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	o, err := repo.FindByCode(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Nil(t, o)
}

func TestGormMarkPendingPayment(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET "status"=\$1,"updated_at"=\$2 WHERE \(order_code = \$3 AND status = \$4\)`).
		WithArgs(models.OrderStatusPendingPayment, sqlmock.AnyArg(), "ORD-1001", models.OrderStatusCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkPendingPayment(context.Background(), "ORD-1001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
