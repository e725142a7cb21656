package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const (
	filePerm          = 0600
	dirPerm           = 0700
	maxRecordSize     = 10 * 1024 * 1024 // 10MB max record size
	defaultBufSize    = 64 * 1024        // 64KB buffer
	defaultMaxSegSize = 64 * 1024 * 1024 // 64MB default segment size

	segmentPrefix = "journal"
	segmentFormat = segmentPrefix + "-%05d"

	lenSize    = 4
	heightSize = 8
	crcSize    = 4
)

// FileJournal is a segmented, file-based Journal
type FileJournal struct {
	mu   sync.Mutex
	dir  string
	file *os.File
	buf  *bufio.Writer
	enc  *encoder

	started      bool
	minIndex     int
	segmentIndex int   // current segment index
	segmentSize  int64 // current segment size in bytes
	maxSegSize   int64 // maximum segment size before rotation
	lastHeight   uint64

	logger *zap.Logger
}

var _ Journal = (*FileJournal)(nil)

// NewFileJournal creates a journal in dir with the default segment size
func NewFileJournal(dir string, logger *zap.Logger) (*FileJournal, error) {
	return NewFileJournalWithOptions(dir, defaultMaxSegSize, logger)
}

// NewFileJournalWithOptions creates a journal with a custom max segment size
func NewFileJournalWithOptions(dir string, maxSegSize int64, logger *zap.Logger) (*FileJournal, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if maxSegSize <= 0 {
		maxSegSize = defaultMaxSegSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileJournal{
		dir:        dir,
		maxSegSize: maxSegSize,
		logger:     logger.Named("journal"),
	}, nil
}

// Dir returns the journal directory
func (j *FileJournal) Dir() string {
	return j.dir
}

// Start scans existing segments, repairs a torn tail and opens the newest
// segment for appending
func (j *FileJournal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil
	}

	segments, err := findSegments(j.dir)
	if err != nil {
		return fmt.Errorf("failed to list journal segments: %w", err)
	}
	j.minIndex, j.segmentIndex, j.lastHeight = 0, 0, 0
	if len(segments) > 0 {
		j.minIndex = segments[0]
		j.segmentIndex = segments[len(segments)-1]
	}

	for i, idx := range segments {
		if err := j.scanSegment(idx, i == len(segments)-1); err != nil {
			return err
		}
	}

	if err := j.openSegment(j.segmentIndex); err != nil {
		return err
	}
	j.started = true
	return nil
}

// scanSegment reads every record of a segment to find the last height.
// A partial record at the end of the newest segment is cut off.
func (j *FileJournal) scanSegment(index int, newest bool) error {
	path := j.segmentPath(index)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open journal segment %d: %w", index, err)
	}
	defer file.Close()

	dec := newDecoder(bufio.NewReader(file))
	var good int64
	for {
		rec, n, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) && newest {
			j.logger.Warn("truncating torn journal tail",
				zap.Int("segment", index),
				zap.Int64("offset", good))
			return os.Truncate(path, good)
		}
		if err != nil {
			return fmt.Errorf("segment %d at offset %d: %w", index, good, err)
		}
		if rec.Height <= j.lastHeight {
			return fmt.Errorf("%w: segment %d height %d after %d",
				ErrCorrupted, index, rec.Height, j.lastHeight)
		}
		j.lastHeight = rec.Height
		good += int64(n)
	}
}

func (j *FileJournal) segmentPath(index int) string {
	return filepath.Join(j.dir, fmt.Sprintf(segmentFormat, index))
}

// openSegment opens a segment file for appending
func (j *FileJournal) openSegment(index int) error {
	path := j.segmentPath(index)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open journal segment %d: %w", index, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat journal segment: %w", err)
	}

	j.file = file
	j.buf = bufio.NewWriterSize(file, defaultBufSize)
	j.enc = newEncoder(j.buf)
	j.segmentSize = info.Size()
	return nil
}

// Stop flushes, syncs and closes the current segment
func (j *FileJournal) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started {
		return nil
	}
	j.started = false

	if err := j.buf.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	return j.file.Close()
}

// Write appends a record (buffered)
func (j *FileJournal) Write(rec *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.write(rec)
}

// WriteSync appends a record and syncs it to disk
func (j *FileJournal) WriteSync(rec *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.write(rec); err != nil {
		return err
	}
	return j.flushAndSync()
}

func (j *FileJournal) write(rec *Record) error {
	if !j.started {
		return ErrClosed
	}
	if rec.Height <= j.lastHeight {
		return fmt.Errorf("%w: %d after %d", ErrHeightRegression, rec.Height, j.lastHeight)
	}

	if j.segmentSize >= j.maxSegSize {
		if err := j.rotate(); err != nil {
			return fmt.Errorf("failed to rotate journal: %w", err)
		}
	}

	n, err := j.enc.Encode(rec)
	if err != nil {
		return err
	}
	j.segmentSize += int64(n)
	j.lastHeight = rec.Height
	return nil
}

// rotate closes the current segment and opens the next one
func (j *FileJournal) rotate() error {
	if err := j.flushAndSync(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return err
	}
	j.segmentIndex++
	j.logger.Debug("rotated journal segment", zap.Int("segment", j.segmentIndex))
	return j.openSegment(j.segmentIndex)
}

// FlushAndSync flushes the buffer and syncs to disk
func (j *FileJournal) FlushAndSync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started {
		return ErrClosed
	}
	return j.flushAndSync()
}

func (j *FileJournal) flushAndSync() error {
	if err := j.buf.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

// LastHeight returns the height of the newest record
func (j *FileJournal) LastHeight() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastHeight
}

// SegmentCount returns the number of segments
func (j *FileJournal) SegmentCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.segmentIndex - j.minIndex + 1
}

// CurrentSegmentSize returns the size of the current segment
func (j *FileJournal) CurrentSegmentSize() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.segmentSize
}

// encoder frames records
type encoder struct {
	w   io.Writer
	buf []byte
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: w}
}

// Encode writes a framed record and returns the number of bytes written
func (e *encoder) Encode(rec *Record) (int, error) {
	bodyLen := heightSize + len(rec.Data)
	if bodyLen > maxRecordSize {
		return 0, fmt.Errorf("record of %d bytes exceeds %d", bodyLen, maxRecordSize)
	}
	total := lenSize + bodyLen + crcSize
	if cap(e.buf) < total {
		e.buf = make([]byte, total)
	}
	frame := e.buf[:total]

	binary.BigEndian.PutUint32(frame[:lenSize], uint32(bodyLen))
	body := frame[lenSize : lenSize+bodyLen]
	binary.BigEndian.PutUint64(body[:heightSize], rec.Height)
	copy(body[heightSize:], rec.Data)
	binary.BigEndian.PutUint32(frame[lenSize+bodyLen:], crc32.ChecksumIEEE(body))

	if _, err := e.w.Write(frame); err != nil {
		return 0, err
	}
	return total, nil
}

// decoder reads framed records
type decoder struct {
	r   io.Reader
	hdr [lenSize]byte
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: r}
}

// Decode returns the next record and the number of bytes it occupied. A
// clean end of input is io.EOF; a partial record is io.ErrUnexpectedEOF.
func (d *decoder) Decode() (*Record, int, error) {
	if _, err := io.ReadFull(d.r, d.hdr[:]); err != nil {
		return nil, 0, err
	}
	length := binary.BigEndian.Uint32(d.hdr[:])
	if length < heightSize || length > maxRecordSize {
		return nil, 0, fmt.Errorf("%w: record length %d", ErrCorrupted, length)
	}

	frame := make([]byte, int(length)+crcSize)
	if _, err := io.ReadFull(d.r, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}
	body := frame[:length]
	expected := binary.BigEndian.Uint32(frame[length:])
	if actual := crc32.ChecksumIEEE(body); actual != expected {
		return nil, 0, fmt.Errorf("%w: CRC mismatch (expected %08x, got %08x)", ErrCorrupted, expected, actual)
	}

	rec := &Record{
		Height: binary.BigEndian.Uint64(body[:heightSize]),
		Data:   body[heightSize:],
	}
	return rec, lenSize + len(frame), nil
}

// fileReader reads records from one segment
type fileReader struct {
	file *os.File
	dec  *decoder
}

func openFileReader(path string) (*fileReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileReader{file: file, dec: newDecoder(bufio.NewReader(file))}, nil
}

func (r *fileReader) Read() (*Record, error) {
	rec, _, err := r.dec.Decode()
	return rec, err
}

func (r *fileReader) Close() error {
	return r.file.Close()
}

// OpenForReading opens every segment in dir for reading from the start
func OpenForReading(dir string) (Reader, error) {
	segments, err := findSegments(dir)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrNotFound
	}
	return &multiSegmentReader{
		dir:      dir,
		segments: segments,
		current:  -1,
	}, nil
}

// findSegments returns the sorted segment indexes in dir. A missing
// directory has no segments.
func findSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var segments []int
	for _, entry := range entries {
		var idx int
		if n, _ := fmt.Sscanf(entry.Name(), segmentFormat, &idx); n == 1 && !entry.IsDir() {
			segments = append(segments, idx)
		}
	}
	sort.Ints(segments)
	return segments, nil
}

// multiSegmentReader reads through segments in index order
type multiSegmentReader struct {
	dir      string
	segments []int
	current  int
	reader   *fileReader
}

func (r *multiSegmentReader) Read() (*Record, error) {
	for {
		if r.reader == nil {
			r.current++
			if r.current >= len(r.segments) {
				return nil, io.EOF
			}
			fr, err := openFileReader(filepath.Join(r.dir, fmt.Sprintf(segmentFormat, r.segments[r.current])))
			if err != nil {
				return nil, err
			}
			r.reader = fr
		}

		rec, err := r.reader.Read()
		if err == io.EOF {
			r.reader.Close()
			r.reader = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
}

func (r *multiSegmentReader) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}

var _ Reader = (*multiSegmentReader)(nil)
