// Package archive keeps a durable copy of generated reports in Postgres.
// The archive is informational; run correctness never depends on it.
package archive

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"jubo/internal/commontypes"
)

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Configured reports whether enough settings are present to open the archive.
func (c DBConfig) Configured() bool {
	return c.Host != "" && c.Name != "" && c.User != ""
}

func Connect(cfg DBConfig) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// SaveReport upserts one report row keyed by period. Re-running a period
// replaces its archived copy.
func SaveReport(db *sql.DB, periodKey, kind, dateLabel, body string, stats commontypes.BackupStats, logger *zap.Logger) error {
	query := `
		INSERT INTO reports (period_key, report_type, date_label, body,
			weekly_messages, late_thread_replies, total_seen, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (period_key)
		DO UPDATE SET report_type = EXCLUDED.report_type,
			date_label = EXCLUDED.date_label,
			body = EXCLUDED.body,
			weekly_messages = EXCLUDED.weekly_messages,
			late_thread_replies = EXCLUDED.late_thread_replies,
			total_seen = EXCLUDED.total_seen,
			generated_at = CURRENT_TIMESTAMP`

	logger.Debug("Archiving report to database",
		zap.String("period_key", periodKey),
		zap.String("report_type", kind))

	_, err := db.Exec(query, periodKey, kind, dateLabel, body,
		stats.WeeklyMessages, stats.LateThreadReplies, stats.TotalSeen)
	if err != nil {
		return fmt.Errorf("archiving report for %s: %w", periodKey, err)
	}
	return nil
}
