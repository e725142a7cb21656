package journal

import (
	"errors"
	"io"
)

// Errors
var (
	ErrClosed           = errors.New("journal is closed")
	ErrCorrupted        = errors.New("journal is corrupted")
	ErrNotFound         = errors.New("journal not found")
	ErrHeightRegression = errors.New("journal height regression")
)

// Record is one journaled transaction
type Record struct {
	Height uint64
	Data   []byte
}

// Journal is an append-only log of records with strictly increasing heights
type Journal interface {
	// Write appends a record (buffered)
	Write(rec *Record) error

	// WriteSync appends a record and syncs it to disk
	WriteSync(rec *Record) error

	// FlushAndSync flushes and syncs all pending writes
	FlushAndSync() error

	// LastHeight returns the height of the newest record, 0 when empty
	LastHeight() uint64

	// Start opens the journal for appending
	Start() error

	// Stop flushes and closes the journal
	Stop() error
}

// Reader reads records in order
type Reader interface {
	// Read returns the next record, or io.EOF after the last one
	Read() (*Record, error)

	// Close closes the reader
	Close() error
}

// NopJournal discards every record
type NopJournal struct{}

func (NopJournal) Write(*Record) error     { return nil }
func (NopJournal) WriteSync(*Record) error { return nil }
func (NopJournal) FlushAndSync() error     { return nil }
func (NopJournal) LastHeight() uint64      { return 0 }
func (NopJournal) Start() error            { return nil }
func (NopJournal) Stop() error             { return nil }

var _ Journal = NopJournal{}

// NopReader is a reader without records
type NopReader struct{}

func (NopReader) Read() (*Record, error) { return nil, io.EOF }
func (NopReader) Close() error           { return nil }

var _ Reader = NopReader{}
