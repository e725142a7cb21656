package engine

import "errors"

// Engine errors
var (
	ErrAlreadyStarted      = errors.New("engine already started")
	ErrNotStarted          = errors.New("engine not started")
	ErrHalted              = errors.New("engine halted")
	ErrInvalidTx           = errors.New("invalid transaction")
	ErrUnknownTxKind       = errors.New("unknown transaction kind")
	ErrTimestampRegression = errors.New("transaction timestamp regression")
	ErrUnknownExtension    = errors.New("extension not in catalog")
	ErrJournalWrite        = errors.New("journal write failed")
	ErrReplayFailed        = errors.New("journal replay failed")
)
