package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
)

// -----------------------------------------------------------------------------

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "observer.db"),
		},
		Scan: models.MScanConfig{AlertRetentionDays: 365},
	}

	db, err := NewSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func insertEnrollment(t *testing.T, db *SQLiteDB, date, state, district string, a, b, c interface{}) {
	t.Helper()
	_, err := db.DB.Exec(`
		INSERT INTO enrollments (date, state, district, age_0_5, age_5_17, age_18_greater)
		VALUES (?, ?, ?, ?, ?, ?)
	`, date, state, district, a, b, c)
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------

func TestSQLiteFetchSeries(t *testing.T) {
	db := newTestDB(t)

	// Inserted out of order on purpose
	insertEnrollment(t, db, "2025-01-03", "Karnataka", "Mysuru", 10.0, 20.0, 30.0)
	insertEnrollment(t, db, "2025-01-01", "Karnataka", "Mysuru", 1.0, 2.0, 3.0)
	insertEnrollment(t, db, "2025-01-02", "Karnataka", "Mysuru", 5.0, 5.0, 5.0)
	// Other partitions must not leak in
	insertEnrollment(t, db, "2025-01-01", "Maharashtra", "Pune", 100.0, 100.0, 100.0)

	series, err := db.FetchSeries(models.MPartition{State: "Karnataka", District: "Mysuru"}, 90)
	require.NoError(t, err)
	require.Len(t, series, 3)

	// Ascending dates, age bands summed into the daily total
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.Equal(t, 6.0, series[0].Value)
	assert.Equal(t, 15.0, series[1].Value)
	assert.Equal(t, 60.0, series[2].Value)
}

// -----------------------------------------------------------------------------

func TestSQLiteFetchSeriesSkipsNullRows(t *testing.T) {
	db := newTestDB(t)

	insertEnrollment(t, db, "2025-01-01", "Karnataka", "Mysuru", 1.0, 2.0, 3.0)
	insertEnrollment(t, db, "2025-01-02", "Karnataka", "Mysuru", nil, 2.0, 3.0)

	series, err := db.FetchSeries(models.MPartition{State: "Karnataka", District: "Mysuru"}, 90)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 6.0, series[0].Value)
}

// -----------------------------------------------------------------------------

func TestSQLiteFetchSeriesLimitKeepsNewest(t *testing.T) {
	db := newTestDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		insertEnrollment(t, db, start.AddDate(0, 0, i).Format("2006-01-02"),
			"Karnataka", "Mysuru", float64(i), 0.0, 0.0)
	}

	// lookback 90 plus warm-up history caps the query at 150 rows
	series, err := db.FetchSeries(models.MPartition{State: "Karnataka", District: "Mysuru"}, 90)
	require.NoError(t, err)
	require.Len(t, series, 150)
	assert.Equal(t, 50.0, series[0].Value)
	assert.Equal(t, 199.0, series[len(series)-1].Value)
}

// -----------------------------------------------------------------------------

func TestSQLiteFetchSeriesEmptyPartition(t *testing.T) {
	db := newTestDB(t)

	series, err := db.FetchSeries(models.MPartition{State: "Nowhere", District: "None"}, 90)
	require.NoError(t, err)
	assert.Empty(t, series)
}

// -----------------------------------------------------------------------------

func TestSQLiteListPartitions(t *testing.T) {
	db := newTestDB(t)

	insertEnrollment(t, db, "2025-01-01", "Maharashtra", "Pune", 1.0, 1.0, 1.0)
	insertEnrollment(t, db, "2025-01-01", "Karnataka", "Mysuru", 1.0, 1.0, 1.0)
	insertEnrollment(t, db, "2025-01-02", "Karnataka", "Mysuru", 2.0, 2.0, 2.0)

	partitions, err := db.ListPartitions()
	require.NoError(t, err)

	assert.Equal(t, []models.MPartition{
		{State: "Karnataka", District: "Mysuru"},
		{State: "Maharashtra", District: "Pune"},
	}, partitions)
}

// -----------------------------------------------------------------------------

func TestSQLiteSaveAlerts(t *testing.T) {
	db := newTestDB(t)

	n, err := db.SaveAlerts(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	alerts := []models.MAnomalyAlert{{
		DateStr:       "2025-02-20",
		MetricName:    "daily_enrollments",
		Value:         200,
		SeverityScore: 9.43,
		AnomalyType:   models.AnomalySpike,
		DetectionMethods: []models.DetectionMethod{
			models.MethodZScore,
			models.MethodIQR,
			models.MethodRollingDeviation,
		},
		State:    "Karnataka",
		District: "Bengaluru Urban",
	}}

	n, err = db.SaveAlerts(alerts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var dateStr, methods, anomalyType string
	var severity float64
	err = db.DB.QueryRow(`
		SELECT date, detection_methods, anomaly_type, severity_score
		FROM anomaly_alerts
	`).Scan(&dateStr, &methods, &anomalyType, &severity)
	require.NoError(t, err)

	assert.Equal(t, "2025-02-20", dateStr)
	assert.Equal(t, "z_score,iqr,rolling_deviation", methods)
	assert.Equal(t, "spike", anomalyType)
	assert.Equal(t, 9.43, severity)
}

// -----------------------------------------------------------------------------

func TestSQLiteCleanupOldAlerts(t *testing.T) {
	db := newTestDB(t)
	db.Config.Scan.AlertRetentionDays = 30

	old := time.Now().UTC().AddDate(0, 0, -60).Format("2006-01-02")
	recent := time.Now().UTC().AddDate(0, 0, -5).Format("2006-01-02")

	alerts := []models.MAnomalyAlert{
		{DateStr: old, MetricName: "daily_enrollments", AnomalyType: models.AnomalyDrop,
			DetectionMethods: []models.DetectionMethod{models.MethodZScore, models.MethodIQR}},
		{DateStr: recent, MetricName: "daily_enrollments", AnomalyType: models.AnomalySpike,
			DetectionMethods: []models.DetectionMethod{models.MethodZScore, models.MethodIQR}},
	}
	_, err := db.SaveAlerts(alerts)
	require.NoError(t, err)

	require.NoError(t, db.CleanupOldAlerts())

	var count int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM anomaly_alerts`).Scan(&count))
	assert.Equal(t, 1, count)

	var dateStr string
	require.NoError(t, db.DB.QueryRow(`SELECT date FROM anomaly_alerts`).Scan(&dateStr))
	assert.Equal(t, recent, dateStr)
}
