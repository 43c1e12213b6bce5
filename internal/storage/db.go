package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"chemdesk/internal"
	"chemdesk/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS compounds (
  canonical TEXT PRIMARY KEY,
  registryId INTEGER,
  formula TEXT,
  cas TEXT,
  molecularWeight REAL,
  devCodes TEXT,
  updatedAt TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_compounds_cas ON compounds(cas);
CREATE INDEX IF NOT EXISTS idx_compounds_registryId ON compounds(registryId);

CREATE TABLE IF NOT EXISTS variants (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  variant TEXT NOT NULL,
  canonical TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(variant, canonical)
);
CREATE INDEX IF NOT EXISTS idx_variants_variant ON variants(variant);
CREATE INDEX IF NOT EXISTS idx_variants_canonical ON variants(canonical);

CREATE TABLE IF NOT EXISTS requests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS extractions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  requestId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  rawLine TEXT NOT NULL,
  parsedName TEXT,
  parsedAmount REAL,
  parsedUnit TEXT,
  parsedJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(requestId, lineNo, source, rawLine),
  FOREIGN KEY(requestId) REFERENCES requests(id)
);

CREATE TABLE IF NOT EXISTS resolutions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  extractionId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  confidence REAL NOT NULL,
  reason TEXT NOT NULL,
  normalizedName TEXT NOT NULL,
  canonical TEXT,
  candidatesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(extractionId) REFERENCES extractions(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  requestId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(requestId) REFERENCES requests(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertCompounds(compounds []internal.CompoundRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO compounds (
  canonical, registryId, formula, cas, molecularWeight, devCodes, updatedAt, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(canonical) DO UPDATE SET
  registryId=excluded.registryId,
  formula=excluded.formula,
  cas=excluded.cas,
  molecularWeight=excluded.molecularWeight,
  devCodes=excluded.devCodes,
  updatedAt=excluded.updatedAt,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range compounds {
		devCodesJSON, _ := json.Marshal(c.DevCodes)
		if _, err := stmt.Exec(
			c.Canonical, c.RegistryID, c.Formula, c.CAS, c.MolecularWeight,
			string(devCodesJSON), c.UpdatedAt, c.RawJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListCompounds() ([]internal.CompoundRecord, error) {
	rows, err := d.conn.Query(`
SELECT canonical, registryId, formula, cas, molecularWeight, devCodes, updatedAt, raw_json
FROM compounds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CompoundRecord
	for rows.Next() {
		var c internal.CompoundRecord
		var devCodesJSON string
		if err := rows.Scan(
			&c.Canonical, &c.RegistryID, &c.Formula, &c.CAS, &c.MolecularWeight,
			&devCodesJSON, &c.UpdatedAt, &c.RawJSON,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(devCodesJSON), &c.DevCodes)
		out = append(out, c)
	}

	return out, rows.Err()
}

func (d *DB) GetCompoundByCanonical(canonical string) (*internal.CompoundRecord, error) {
	var c internal.CompoundRecord
	var devCodesJSON string
	err := d.conn.QueryRow(`
SELECT canonical, registryId, formula, cas, molecularWeight, devCodes, updatedAt, raw_json
FROM compounds WHERE canonical = ?
`, canonical).Scan(
		&c.Canonical, &c.RegistryID, &c.Formula, &c.CAS, &c.MolecularWeight,
		&devCodesJSON, &c.UpdatedAt, &c.RawJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(devCodesJSON), &c.DevCodes)
	return &c, nil
}

func (d *DB) UpsertVariants(entries []internal.VariantEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO variants (variant, canonical) VALUES (?, ?)
ON CONFLICT(variant, canonical) DO NOTHING
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(entry.Variant, entry.Canonical); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListVariantEntries() ([]internal.VariantEntry, error) {
	rows, err := d.conn.Query(`SELECT variant, canonical FROM variants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.VariantEntry
	for rows.Next() {
		var entry internal.VariantEntry
		if err := rows.Scan(&entry.Variant, &entry.Canonical); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (d *DB) UpsertRequest(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.RequestRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO requests (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.RequestRow{}, err
	}

	row, err := d.GetRequestByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.RequestRow{}, err
	}
	if row == nil {
		return internal.RequestRow{}, errors.New("failed to upsert request")
	}
	return *row, nil
}

func (d *DB) GetRequestByProviderMessageID(provider, messageID string) (*internal.RequestRow, error) {
	var row internal.RequestRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM requests WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetRequestByID(id int) (*internal.RequestRow, error) {
	var row internal.RequestRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM requests WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListRequestsByStatus(status string, limit int) ([]internal.RequestRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM requests WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RequestRow
	for rows.Next() {
		var row internal.RequestRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateRequestStatus(requestID int, status string) error {
	_, err := d.conn.Exec(`UPDATE requests SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, requestID)
	return err
}

func (d *DB) ClearRequestProcessing(requestID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT id FROM extractions WHERE requestId = ?`, requestID)
	if err != nil {
		return err
	}
	var extractionIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		extractionIDs = append(extractionIDs, id)
	}
	_ = rows.Close()

	for _, id := range extractionIDs {
		if _, err := tx.Exec(`DELETE FROM resolutions WHERE extractionId = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM extractions WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertExtraction(requestID int, item internal.ExtractionItem) (int64, error) {
	metaJSON, _ := json.Marshal(item.Meta)
	result, err := d.conn.Exec(`
INSERT INTO extractions (requestId, lineNo, source, rawLine, parsedName, parsedAmount, parsedUnit, parsedJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, requestID, item.LineNo, string(item.Source), item.RawLine, item.Name, item.Amount, item.Unit, string(metaJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertResolution(extractionID int64, result internal.ResolutionResult) error {
	candidatesJSON, _ := json.Marshal(result.Candidates)
	_, err := d.conn.Exec(`
INSERT INTO resolutions (extractionId, status, confidence, reason, normalizedName, canonical, candidatesJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, extractionID, string(result.Status), result.Confidence, string(result.Reason), result.Normalized, result.Canonical, string(candidatesJSON))
	return err
}

func (d *DB) InsertRun(traceID string, requestID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, requestId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, requestID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) GetExportRows(requestID int) ([]internal.ResultExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  e.lineNo,
  e.source,
  e.rawLine,
  e.parsedName,
  e.parsedAmount,
  e.parsedUnit,
  r.status,
  r.confidence,
  r.reason,
  r.normalizedName,
  r.canonical,
  c.formula,
  c.cas,
  c.molecularWeight,
  r.candidatesJson
FROM extractions e
JOIN resolutions r ON r.extractionId = e.id
LEFT JOIN compounds c ON c.canonical = r.canonical
WHERE e.requestId = ?
ORDER BY
  CASE r.status WHEN 'OK' THEN 1 WHEN 'REVIEW' THEN 2 ELSE 3 END,
  e.lineNo ASC
`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ResultExportRow
	for rows.Next() {
		var row internal.ResultExportRow
		var candidatesJSON string
		if err := rows.Scan(
			&row.InputLineNo,
			&row.Source,
			&row.RawLine,
			&row.ParsedName,
			&row.ParsedAmount,
			&row.ParsedUnit,
			&row.Status,
			&row.Confidence,
			&row.Reason,
			&row.NormalizedName,
			&row.Canonical,
			&row.Formula,
			&row.CAS,
			&row.MolecularWeight,
			&candidatesJSON,
		); err != nil {
			return nil, err
		}

		var candidates []internal.ResolutionCandidate
		_ = json.Unmarshal([]byte(candidatesJSON), &candidates)
		if len(candidates) > 1 {
			row.Candidate2Name = util.StringPtr(candidates[1].Canonical)
			row.Candidate2Score = util.FloatPtr(candidates[1].Score)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func (d *DB) MustRequestByProviderMessageID(provider, messageID string) (internal.RequestRow, error) {
	row, err := d.GetRequestByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.RequestRow{}, err
	}
	if row == nil {
		return internal.RequestRow{}, fmt.Errorf("request not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}
