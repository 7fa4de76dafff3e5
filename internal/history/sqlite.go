package history

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteStore(connectionString string) (Store, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{
		db:               db,
		connectionString: connectionString,
	}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		style TEXT NOT NULL,
		source_mime TEXT NOT NULL,
		result_mime TEXT NOT NULL,
		result BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) CreateRecord(style, sourceMime, resultMime string, result []byte) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO generations (id, style, source_mime, result_mime, result, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, style, sourceMime, resultMime, result, createdAt.UnixNano())
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *SQLiteStore) ListRecords() ([]*Record, error) {
	rows, err := s.db.Query(
		"SELECT id, style, source_mime, result_mime, created_at FROM generations ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*Record
	for rows.Next() {
		var rec Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Style, &rec.SourceMime, &rec.ResultMime, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) GetRecordByID(id string) (*Record, error) {
	row := s.db.QueryRow(
		"SELECT id, style, source_mime, result_mime, result, created_at FROM generations WHERE id = ?", id)

	var rec Record
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.Style, &rec.SourceMime, &rec.ResultMime, &rec.Result, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

func (s *SQLiteStore) DeleteRecord(id string) error {
	_, err := s.db.Exec("DELETE FROM generations WHERE id = ?", id)
	return err
}
