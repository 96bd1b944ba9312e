package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
)

func newMockSettlementRepository(t *testing.T) (*GormSettlementRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormSettlementRepository(gormDB), mock, mockDB
}

func settlementRows(id, storeID uuid.UUID, year, month, version int) *sqlmock.Rows {
	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "record_version", "store_id", "seller_id",
		"year", "month", "settlement_version", "settlement_number",
		"currency", "gross_sales", "total_commission", "net_payable",
		"status", "period_start", "period_end",
	}).AddRow(
		id, 1, storeID, uuid.New(),
		year, month, version, "STL-2026-07-0001",
		"EUR", decimal.NewFromInt(500), decimal.NewFromInt(50), decimal.NewFromInt(450),
		"DRAFT", periodStart, periodStart.AddDate(0, 1, 0),
	)
}

func expectSettlementPreloads(mock sqlmock.Sqlmock, settlementID uuid.UUID) {
	mock.ExpectQuery(`SELECT \* FROM "settlement_items" WHERE "settlement_items"\."settlement_id" = \$1`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "settlement_id"}))
	mock.ExpectQuery(`SELECT \* FROM "settlement_adjustments" WHERE "settlement_adjustments"\."settlement_id" = \$1`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "settlement_id"}))
}

func TestGormSettlementRepository_FindByID(t *testing.T) {
	t.Run("finds settlement with items and adjustments", func(t *testing.T) {
		repo, mock, mockDB := newMockSettlementRepository(t)
		defer mockDB.Close()

		settlementID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE id = \$1`).
			WithArgs(settlementID, 1).
			WillReturnRows(settlementRows(settlementID, storeID, 2026, 7, 1))
		expectSettlementPreloads(mock, settlementID)

		s, err := repo.FindByID(context.Background(), settlementID)

		assert.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, storeID, s.StoreID)
		assert.Equal(t, settlement.StatusDraft, s.Status)
		assert.Equal(t, 1, s.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for missing settlement", func(t *testing.T) {
		repo, mock, mockDB := newMockSettlementRepository(t)
		defer mockDB.Close()

		settlementID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE id = \$1`).
			WithArgs(settlementID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		s, err := repo.FindByID(context.Background(), settlementID)

		assert.NoError(t, err)
		assert.Nil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSettlementRepository_FindLatestVersion(t *testing.T) {
	t.Run("orders by settlement version descending", func(t *testing.T) {
		repo, mock, mockDB := newMockSettlementRepository(t)
		defer mockDB.Close()

		settlementID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE store_id = \$1 AND year = \$2 AND month = \$3 ORDER BY settlement_version DESC`).
			WithArgs(storeID, 2026, 7, 1).
			WillReturnRows(settlementRows(settlementID, storeID, 2026, 7, 3))
		expectSettlementPreloads(mock, settlementID)

		s, err := repo.FindLatestVersion(context.Background(), storeID, 2026, 7)

		assert.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, 3, s.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when period has no settlement", func(t *testing.T) {
		repo, mock, mockDB := newMockSettlementRepository(t)
		defer mockDB.Close()

		storeID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "settlements"`).
			WithArgs(storeID, 2026, 7, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		s, err := repo.FindLatestVersion(context.Background(), storeID, 2026, 7)

		assert.NoError(t, err)
		assert.Nil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSettlementRepository_FindByStore(t *testing.T) {
	t.Run("returns page and total count", func(t *testing.T) {
		repo, mock, mockDB := newMockSettlementRepository(t)
		defer mockDB.Close()

		settlementID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "settlements" WHERE store_id = \$1`).
			WithArgs(storeID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE store_id = \$1 ORDER BY year DESC, month DESC, settlement_version DESC LIMIT \$2`).
			WithArgs(storeID, 5).
			WillReturnRows(settlementRows(settlementID, storeID, 2026, 7, 1))
		expectSettlementPreloads(mock, settlementID)

		settlements, total, err := repo.FindByStore(context.Background(), storeID, 5, 0)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), total)
		require.Len(t, settlements, 1)
		assert.Equal(t, settlementID, settlements[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
