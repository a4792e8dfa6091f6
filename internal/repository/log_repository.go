package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// LogRepository persists worker log entries in the SQLite log database.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a new LogRepository with the provided database.
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Insert stores one log entry.
func (r *LogRepository) Insert(ctx context.Context, entry model.LogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO worker_log (id, timestamp, level, category, source, message, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC(),
		string(entry.Level),
		entry.Category,
		entry.Source,
		entry.Message,
		entry.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

// Query returns log entries matching the filters, newest-first unless the
// filters ask for ascending order.
func (r *LogRepository) Query(ctx context.Context, filters *model.LogFilters) ([]model.LogEntry, error) {
	query := strings.Builder{}
	query.WriteString("SELECT id, timestamp, level, category, source, message, details FROM worker_log")

	var clauses []string
	var args []interface{}

	if len(filters.Levels) > 0 {
		clauses = append(clauses, "level IN ("+placeholders(len(filters.Levels))+")")
		for _, level := range filters.Levels {
			args = append(args, level)
		}
	}
	if len(filters.Categories) > 0 {
		clauses = append(clauses, "category IN ("+placeholders(len(filters.Categories))+")")
		for _, category := range filters.Categories {
			args = append(args, category)
		}
	}
	if filters.StartDate != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filters.StartDate.UTC())
	}
	if filters.EndDate != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filters.EndDate.UTC())
	}
	if filters.Source != "" {
		clauses = append(clauses, "source LIKE ?")
		args = append(args, "%"+filters.Source+"%")
	}
	if filters.Message != "" {
		clauses = append(clauses, "message LIKE ?")
		args = append(args, "%"+filters.Message+"%")
	}

	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	if filters.SortDesc {
		query.WriteString(" ORDER BY timestamp DESC")
	} else {
		query.WriteString(" ORDER BY timestamp ASC")
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		var entry model.LogEntry
		var level string
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&level,
			&entry.Category,
			&entry.Source,
			&entry.Message,
			&entry.Details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry.Level = model.LogLevel(level)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteBefore removes entries older than the given timestamp, returning the
// number deleted. Used for log retention.
func (r *LogRepository) DeleteBefore(ctx context.Context, filters *model.LogFilters) (int64, error) {
	if filters.EndDate == nil {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM worker_log WHERE timestamp < ?", filters.EndDate.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete logs: %w", err)
	}
	return result.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
