package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Version: "20260901000001", Name: "create_sequence_counters"},
		{Version: "20260901000002", Name: "create_trade_documents"},
		{Version: "20260901000003", Name: "create_dispatches_and_invoices"},
	}

	t.Run("nothing applied", func(t *testing.T) {
		s := summarize(entries, 0, false)
		assert.Equal(t, 0, s.Applied)
		assert.Equal(t, 3, s.Pending)
	})

	t.Run("part way", func(t *testing.T) {
		s := summarize(entries, 20260901000002, true)
		assert.Equal(t, 2, s.Applied)
		assert.Equal(t, 1, s.Pending)
		assert.True(t, s.Dirty)
	})

	t.Run("fully applied", func(t *testing.T) {
		s := summarize(entries, 20260901000003, false)
		assert.Equal(t, 3, s.Applied)
		assert.Zero(t, s.Pending)
	})
}

func TestVersionLE(t *testing.T) {
	assert.True(t, versionLE("9", "10"))
	assert.False(t, versionLE("20260901000002", "20260901000001"))
	assert.True(t, versionLE("20260901000001", "20260901000001"))
}

func TestVerifySchema(t *testing.T) {
	t.Run("reports missing tables", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		for _, table := range FulfillmentTables {
			exists := table != "payment_records"
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(table).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
		}

		missing, err := VerifySchema(context.Background(), db)
		require.NoError(t, err)
		assert.Equal(t, []string{"payment_records"}, missing)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("permission denied"))

		_, err = VerifySchema(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sequence_counters")
	})
}
