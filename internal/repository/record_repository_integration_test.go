package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/repository"
	"github.com/godilite/bonus-panel/pkg/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(context.Background(), database.WithMigrations(repository.Schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func julyRecords() []engine.EmployeeMonthRecord {
	return []engine.EmployeeMonthRecord{
		{
			Month:         "JULHO",
			Name:          "JOÃO SILVA",
			Role:          "VISTORIADOR",
			City:          "TIMON",
			AdmissionDate: "01/03/2021",
			Tenure:        "2 a 5 anos",
			TargetValue:   decimal.RequireFromString("600"),
			TotalErrors:   8,
			SevereErrors:  1,
		},
		{
			Month:       "JULHO",
			Name:        "MARTA OLIVEIRA",
			Role:        "SUPERVISOR",
			City:        "SÃO LUÍS",
			TargetValue: decimal.RequireFromString("1234.56"),
			Observation: "Licença",
		},
	}
}

func TestRecordRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRecordRepository(setupTestDB(t))

	t.Run("ReplaceMonth and MonthRecords", func(t *testing.T) {
		require.NoError(t, repo.ReplaceMonth(ctx, "julho", julyRecords()))

		got, err := repo.MonthRecords(ctx, "JULHO")
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "JOÃO SILVA", got[0].Name)
		assert.Equal(t, "JULHO", got[0].Month)
		assert.Equal(t, 8, got[0].TotalErrors)
		assert.Equal(t, "01/03/2021", got[0].AdmissionDate)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(got[1].TargetValue))
		assert.Equal(t, "Licença", got[1].Observation)
	})

	t.Run("ReplaceMonth discards previous rows", func(t *testing.T) {
		replacement := julyRecords()[:1]
		require.NoError(t, repo.ReplaceMonth(ctx, "JULHO", replacement))

		got, err := repo.MonthRecords(ctx, "JULHO")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Summaries and Months", func(t *testing.T) {
		august := julyRecords()
		for i := range august {
			august[i].Month = "AGOSTO"
		}
		require.NoError(t, repo.ReplaceMonth(ctx, "AGOSTO", august))

		months, err := repo.Months(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"JULHO", "AGOSTO"}, months)

		summaries, err := repo.Summaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, int64(2), summaries[1].Records)
		assert.InDelta(t, 1834.56, summaries[1].Target, 1e-6)
		_, err = time.Parse(time.RFC3339, summaries[1].ImportedAt)
		assert.NoError(t, err)
	})

	t.Run("unknown month is empty", func(t *testing.T) {
		got, err := repo.MonthRecords(ctx, "DEZEMBRO")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRecordRepository_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRecordRepository(db)
	require.NoError(t, db.Close())

	_, err := repo.MonthRecords(context.Background(), "JULHO")
	assert.ErrorContains(t, err, "query MonthRecords")

	err = repo.ReplaceMonth(context.Background(), "JULHO", julyRecords())
	assert.ErrorContains(t, err, "begin ReplaceMonth")
}
