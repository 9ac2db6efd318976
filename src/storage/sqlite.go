package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
	"enrollment-observer/src/utils"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables is non-destructive: enrollments are externally loaded and
// alerts must survive restarts. Dates are stored as YYYY-MM-DD text, which
// sorts chronologically.
func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS enrollments (
			date TEXT NOT NULL,
			state TEXT NOT NULL,
			district TEXT NOT NULL,
			age_0_5 REAL,
			age_5_17 REAL,
			age_18_greater REAL,
			PRIMARY KEY (date, state, district)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create enrollments: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS anomaly_alerts (
			date TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			anomaly_value REAL,
			severity_score REAL,
			anomaly_type TEXT,
			detection_methods TEXT,
			state TEXT,
			district TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create anomaly_alerts: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// FetchSeries returns the partition's daily totals ascending by date, with
// warm-up history beyond lookbackDays. Rows with NULL age bands are excluded.
func (d *SQLiteDB) FetchSeries(partition models.MPartition, lookbackDays int) ([]models.MMetricPoint, error) {
	limit := utils.CalculateMaxDataPoints(lookbackDays)

	rows, err := d.DB.Query(`
		SELECT date, (age_0_5 + age_5_17 + age_18_greater) AS daily_enrollments
		FROM enrollments
		WHERE state = ? AND district = ?
		ORDER BY date DESC
		LIMIT ?
	`, partition.State, partition.District, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series for %s: %w", partition, err)
	}
	defer rows.Close()

	var reversed []models.MMetricPoint
	for rows.Next() {
		var dateStr string
		var value sql.NullFloat64
		if err := rows.Scan(&dateStr, &value); err != nil {
			return nil, err
		}
		if !value.Valid {
			continue
		}
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			d.Logger.Warning("Skipping row with malformed date '%s' for %s", dateStr, partition)
			continue
		}
		reversed = append(reversed, models.MMetricPoint{Date: date, Value: value.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make([]models.MMetricPoint, len(reversed))
	for i, p := range reversed {
		series[len(reversed)-1-i] = p
	}
	return series, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) ListPartitions() ([]models.MPartition, error) {
	rows, err := d.DB.Query(`
		SELECT DISTINCT state, district
		FROM enrollments
		ORDER BY state, district
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	var partitions []models.MPartition
	for rows.Next() {
		var p models.MPartition
		if err := rows.Scan(&p.State, &p.District); err != nil {
			return nil, err
		}
		partitions = append(partitions, p)
	}
	return partitions, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveAlerts(alerts []models.MAnomalyAlert) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO anomaly_alerts (date, metric_name, anomaly_value, severity_score, anomaly_type, detection_methods, state, district)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, a := range alerts {
		_, err := stmt.Exec(a.DateStr, a.MetricName, a.Value, a.SeverityScore, string(a.AnomalyType),
			strings.Join(a.MethodsAsStrings(), ","), a.State, a.District)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldAlerts() error {
	retentionDays := d.Config.Scan.AlertRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format("2006-01-02")

	if _, err := d.DB.Exec(`DELETE FROM anomaly_alerts WHERE date < ?`, cutoff); err != nil {
		d.Logger.Error("Cleanup anomaly_alerts error: %v", err)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
