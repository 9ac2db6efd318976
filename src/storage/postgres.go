package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
	"enrollment-observer/src/utils"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

// createTables is non-destructive: enrollments are externally loaded and
// alerts must survive restarts.
func (d *PostgresDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS enrollments (
			date DATE NOT NULL,
			state TEXT NOT NULL,
			district TEXT NOT NULL,
			age_0_5 DOUBLE PRECISION,
			age_5_17 DOUBLE PRECISION,
			age_18_greater DOUBLE PRECISION,
			PRIMARY KEY (date, state, district)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create enrollments: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS anomaly_alerts (
			date DATE NOT NULL,
			metric_name TEXT NOT NULL,
			anomaly_value DOUBLE PRECISION,
			severity_score DOUBLE PRECISION,
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

// FetchSeries returns the partition's daily totals ascending by date. The
// query over-fetches beyond lookbackDays so the rolling detector has warm-up
// history. Rows with NULL age bands are excluded.
func (d *PostgresDB) FetchSeries(partition models.MPartition, lookbackDays int) ([]models.MMetricPoint, error) {
	limit := utils.CalculateMaxDataPoints(lookbackDays)

	rows, err := d.DB.Query(`
		SELECT date, (age_0_5 + age_5_17 + age_18_greater) AS daily_enrollments
		FROM enrollments
		WHERE state = $1 AND district = $2
		ORDER BY date DESC
		LIMIT $3
	`, partition.State, partition.District, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series for %s: %w", partition, err)
	}
	defer rows.Close()

	var reversed []models.MMetricPoint
	for rows.Next() {
		var date time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&date, &value); err != nil {
			return nil, err
		}
		if !value.Valid {
			continue
		}
		reversed = append(reversed, models.MMetricPoint{Date: date.UTC(), Value: value.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query ordered DESC for the LIMIT; detectors need ascending.
	series := make([]models.MMetricPoint, len(reversed))
	for i, p := range reversed {
		series[len(reversed)-1-i] = p
	}
	return series, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListPartitions() ([]models.MPartition, error) {
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

func (d *PostgresDB) SaveAlerts(alerts []models.MAnomalyAlert) (int, error) {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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

func (d *PostgresDB) CleanupOldAlerts() error {
	retentionDays := d.Config.Scan.AlertRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format("2006-01-02")

	if _, err := d.DB.Exec(`DELETE FROM anomaly_alerts WHERE date < $1`, cutoff); err != nil {
		d.Logger.Error("Cleanup anomaly_alerts error: %v", err)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
