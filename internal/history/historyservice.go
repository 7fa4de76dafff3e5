// Package history persists generation records so stylized results
// survive a page reload.
package history

import "time"

// Record is one completed generation: the style used and the resulting
// image bytes. Source bytes are not retained; only the active upload in
// the workflow holds them.
type Record struct {
	ID         string
	Style      string
	SourceMime string
	ResultMime string
	Result     []byte
	CreatedAt  time.Time
}

type Store interface {
	Close() error

	// CreateRecord inserts a completed generation and returns its ID.
	CreateRecord(style, sourceMime, resultMime string, result []byte) (string, error)
	// ListRecords returns all records newest first, without result bytes.
	ListRecords() ([]*Record, error)
	GetRecordByID(id string) (*Record, error)
	DeleteRecord(id string) error
}
