package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/repository/models"
)

// Schema creates the record store. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS employee_month_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	month TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	city TEXT NOT NULL,
	admission_date TEXT NOT NULL DEFAULT '',
	tenure TEXT NOT NULL DEFAULT '',
	target_value TEXT NOT NULL,
	observation TEXT NOT NULL DEFAULT '',
	total_errors INTEGER NOT NULL DEFAULT 0,
	severe_errors INTEGER NOT NULL DEFAULT 0,
	imported_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_employee_month_records_month ON employee_month_records (month, position);
`

type RecordRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now}
}

// ReplaceMonth swaps every stored row of month for records in one transaction.
func (s *RecordRepository) ReplaceMonth(ctx context.Context, month string, records []engine.EmployeeMonthRecord) error {
	month = engine.Normalize(month)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ReplaceMonth: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employee_month_records WHERE month = ?`, month); err != nil {
		return fmt.Errorf("delete ReplaceMonth: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO employee_month_records (
			month, position, name, role, city, admission_date, tenure,
			target_value, observation, total_errors, severe_errors, imported_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare ReplaceMonth: %w", err)
	}
	defer stmt.Close()

	importedAt := s.now().UTC().Format(time.RFC3339)
	for i, rec := range records {
		rec.Month = month
		row := models.FromRecord(i, rec)
		if _, err := stmt.ExecContext(ctx,
			row.Month, row.Position, row.Name, row.Role, row.City, row.AdmissionDate, row.Tenure,
			row.TargetValue, row.Observation, row.TotalErrors, row.SevereErrors, importedAt,
		); err != nil {
			return fmt.Errorf("insert ReplaceMonth row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceMonth: %w", err)
	}
	return nil
}

// MonthRecords returns the rows of month in import order.
func (s *RecordRepository) MonthRecords(ctx context.Context, month string) ([]engine.EmployeeMonthRecord, error) {
	const query = `
		SELECT month, position, name, role, city, admission_date, tenure,
			target_value, observation, total_errors, severe_errors
		FROM employee_month_records
		WHERE month = ?
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, engine.Normalize(month))
	if err != nil {
		return nil, fmt.Errorf("query MonthRecords: %w", err)
	}
	defer rows.Close()

	var results []engine.EmployeeMonthRecord
	for rows.Next() {
		var r models.RecordRow
		if err := rows.Scan(&r.Month, &r.Position, &r.Name, &r.Role, &r.City, &r.AdmissionDate, &r.Tenure,
			&r.TargetValue, &r.Observation, &r.TotalErrors, &r.SevereErrors); err != nil {
			return nil, fmt.Errorf("scan MonthRecords row: %w", err)
		}
		rec, err := r.ToRecord()
		if err != nil {
			return nil, fmt.Errorf("decode MonthRecords row %d: %w", r.Position, err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate MonthRecords: %w", err)
	}
	return results, nil
}

// Months lists the stored months.
func (s *RecordRepository) Months(ctx context.Context) ([]string, error) {
	summaries, err := s.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	months := make([]string, 0, len(summaries))
	for _, m := range summaries {
		months = append(months, m.Month)
	}
	return months, nil
}

// Summaries aggregates the stored rows per month, computed in SQL.
func (s *RecordRepository) Summaries(ctx context.Context) ([]models.MonthSummary, error) {
	const query = `
		SELECT
			month,
			COUNT(id) AS records,
			COALESCE(SUM(CAST(target_value AS REAL)), 0) AS target,
			MAX(imported_at) AS imported_at
		FROM employee_month_records
		GROUP BY month
		ORDER BY MIN(id)
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query Summaries: %w", err)
	}
	defer rows.Close()

	var results []models.MonthSummary
	for rows.Next() {
		var m models.MonthSummary
		if err := rows.Scan(&m.Month, &m.Records, &m.Target, &m.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan Summaries row: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate Summaries: %w", err)
	}
	return results, nil
}
