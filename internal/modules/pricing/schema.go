package pricing

import "database/sql"

// UnitPricesSchema holds half-hourly Agile unit prices keyed by the UTC start
// of the settlement period.
const UnitPricesSchema = `
CREATE TABLE IF NOT EXISTS unit_prices (
    period_start TEXT PRIMARY KEY,
    price REAL NOT NULL,
    fetched_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(UnitPricesSchema)
	return err
}
