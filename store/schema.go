package store

// Schema is applied on every Open. Prices that failed to parse are stored as
// NULL and read back as NaN.
const Schema = `
CREATE TABLE IF NOT EXISTS candles (
	instrument TEXT NOT NULL,
	time_open INTEGER NOT NULL,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	volume REAL,
	PRIMARY KEY (instrument, time_open)
);
`
