// seed inserts synthetic enrollment history with injected anomalies, so the
// observer can be exercised locally without a warehouse dump.
// Run with: go run ./cmd/seed -config config/default.yaml
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"enrollment-observer/src/config"
	"enrollment-observer/src/logger"
	"enrollment-observer/src/storage"
)

// -----------------------------------------------------------------------------

const seedDays = 120

type seedPartition struct {
	state    string
	district string
	baseline float64
	// anomalyDay injects a scaled value that many days before today; 0 = none
	anomalyDay   int
	anomalyScale float64
}

var partitions = []seedPartition{
	{state: "Karnataka", district: "Bengaluru Urban", baseline: 140, anomalyDay: 20, anomalyScale: 2.2},
	{state: "Karnataka", district: "Mysuru", baseline: 90},
	{state: "Maharashtra", district: "Pune", baseline: 120, anomalyDay: 35, anomalyScale: 0.3},
	{state: "Maharashtra", district: "Nagpur", baseline: 75},
	{state: "Tamil Nadu", district: "Chennai", baseline: 160},
}

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	seedLogger := logger.NewLogger(cfg.LogLevel, "seed")
	db, insertQuery, err := openBackend(cfg, seedLogger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer db.Close()

	log.Println("Connected, seeding enrollments...")

	rng := rand.New(rand.NewSource(42))
	today := time.Now().UTC().Truncate(24 * time.Hour)
	inserted := 0

	for _, p := range partitions {
		for day := seedDays; day >= 1; day-- {
			date := today.AddDate(0, 0, -day)

			// Noisy baseline split across the three age bands
			total := p.baseline + rng.NormFloat64()*p.baseline*0.05
			if p.anomalyDay != 0 && day == p.anomalyDay {
				total = p.baseline * p.anomalyScale
			}
			age05 := total * 0.35
			age517 := total * 0.45
			age18 := total - age05 - age517

			if _, err := db.Exec(insertQuery, date.Format("2006-01-02"), p.state, p.district, age05, age517, age18); err != nil {
				log.Fatalf("insert %s %s: %v", p.district, date.Format("2006-01-02"), err)
			}
			inserted++
		}
	}

	log.Printf("Seeded %d rows across %d partitions", inserted, len(partitions))
}

// -----------------------------------------------------------------------------

// openBackend initializes the configured storage backend (creating tables if
// missing) and returns its handle plus the dialect-specific insert.
func openBackend(cfg *config.Config, log *logger.Logger) (*sql.DB, string, error) {
	const columns = "(date, state, district, age_0_5, age_5_17, age_18_greater)"

	switch cfg.Storage.DBType {
	case "postgres":
		pg, err := storage.NewPostgresDB(cfg.MConfig, log)
		if err != nil {
			return nil, "", err
		}
		if err := pg.Initialize(); err != nil {
			return nil, "", err
		}
		query := fmt.Sprintf(`INSERT INTO enrollments %s VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (date, state, district) DO NOTHING`, columns)
		return pg.DB, query, nil

	default:
		lite, err := storage.NewSQLiteDB(cfg.MConfig, log)
		if err != nil {
			return nil, "", err
		}
		if err := lite.Initialize(); err != nil {
			return nil, "", err
		}
		query := fmt.Sprintf(`INSERT INTO enrollments %s VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (date, state, district) DO NOTHING`, columns)
		return lite.DB, query, nil
	}
}
