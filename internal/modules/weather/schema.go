package weather

import "database/sql"

// ForecastSchema holds forecast outdoor temperatures keyed by UTC time.
const ForecastSchema = `
CREATE TABLE IF NOT EXISTS forecast_temperatures (
    time TEXT PRIMARY KEY,
    temperature REAL NOT NULL,
    fetched_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(ForecastSchema)
	return err
}
