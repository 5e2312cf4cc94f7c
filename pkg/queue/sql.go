package queue

import "fmt"

// statements holds the SQL text for one queue instance. The table name
// comes from configuration and is interpolated verbatim; an invalid
// identifier surfaces as a storage failure at construction time.
//
// last_grabbed_at is unix milliseconds so staleness arithmetic works the
// same on any engine and the clock value is always supplied by the caller.
type statements struct {
	createTable      string
	createIndex      string
	countAll         string
	insertItem       string
	selectCandidates string
	claimItem        string
	releaseItem      string
	deleteItem       string
	releaseExpired   string
	pruneExhausted   string
}

func buildStatements(table string, lookAhead int) statements {
	return statements{
		createTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id              CHAR(36) PRIMARY KEY,
			ref_id          VARCHAR(50) NOT NULL,
			version         BIGINT NOT NULL DEFAULT 1,
			last_grabbed_at BIGINT,
			grabbed         INT NOT NULL DEFAULT 0,
			retried         INT NOT NULL DEFAULT 0
		)`, table),
		createIndex: fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_grabbed ON %s (grabbed)`,
			table, table),
		countAll: fmt.Sprintf(
			`SELECT COUNT(*) FROM %s`, table),
		insertItem: fmt.Sprintf(
			`INSERT INTO %s (id, ref_id, version, last_grabbed_at) VALUES (?, ?, 1, NULL)`,
			table),
		// No explicit ordering: scan order is storage-native and FIFO is
		// not part of the contract.
		selectCandidates: fmt.Sprintf(
			`SELECT id, ref_id, version FROM %s WHERE grabbed = 0 LIMIT %d`,
			table, lookAhead),
		// The compare-and-swap. At most one concurrent claimant can match
		// (id, version, grabbed = 0); everyone else affects zero rows.
		claimItem: fmt.Sprintf(
			`UPDATE %s SET version = version + 1, grabbed = 1, retried = retried + 1, last_grabbed_at = ? WHERE id = ? AND version = ? AND grabbed = 0`,
			table),
		releaseItem: fmt.Sprintf(
			`UPDATE %s SET grabbed = 0 WHERE id = ?`, table),
		deleteItem: fmt.Sprintf(
			`DELETE FROM %s WHERE id = ?`, table),
		releaseExpired: fmt.Sprintf(
			`UPDATE %s SET grabbed = 0 WHERE grabbed = 1 AND ? > last_grabbed_at + ?`,
			table),
		pruneExhausted: fmt.Sprintf(
			`DELETE FROM %s WHERE retried > ?`, table),
	}
}
