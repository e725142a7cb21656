// Package journal implements the append-only transaction journal used to
// rebuild engine state after a restart.
//
// Every transaction the engine applies successfully is appended before its
// receipt is returned. On startup the engine reads the journal from the
// beginning and re-applies each record in order. Because token execution is
// deterministic given the transaction and its timestamp, replay reproduces
// the state exactly.
//
// # File Format
//
// The journal is a directory of segments named journal-00000,
// journal-00001, ... Each record is encoded as:
//
//	[4 bytes: length][8 bytes: height][N bytes: data][4 bytes: CRC32]
//
// length covers height and data; the IEEE CRC32 covers the same bytes. All
// integers are big endian. A segment is rotated once it reaches the maximum
// segment size.
//
// # Recovery
//
// A crash can leave a partially written record at the end of the newest
// segment. Start truncates such a tail so later appends stay readable. A
// checksum mismatch anywhere else is reported as ErrCorrupted.
//
// # Durability
//
// Write buffers; WriteSync and FlushAndSync fsync the current segment.
package journal
