package profiler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"

	"github.com/google/uuid"
)

// frameTableFullSize is sizeof(struct frame_table): two uint64 fields
// plus L3FrameCount entries of 16 bytes each.
const frameTableFullSize = 16 + L3FrameCount*ftEntrySize

// dynamicStart is the first page-aligned offset after the fixed
// header, label table, and subsystem table — where the L1 table's
// child L2/L3 tables and frame payloads are appended.
const dynamicStart = HeaderSize + LabelTableSize + SubsystemTableSize

// ErrFrameTableFull is returned once frame_count would exceed
// L1FrameCount: spec §7 says to log and stop writing, not abort.
var ErrFrameTableFull = errors.New("profiler: frame table exhausted (L1FrameCount reached)")

type fileHeader struct {
	Major             uint32
	Minor             uint32
	FrameCount        uint64
	WorkerCount       uint64
	KernelBufferCount uint64
	PID               int32
	PageSize          uint64
	ClockFreq         uint64
	RdtscFreq         uint64
	Bytes             uint64
	TaskCountMax      uint32
	// SessionID stamps every .kaspf file with a unique run identity, so
	// a reader pointed at several profile files from different runs
	// (or a crash-restarted process writing to the same path) can tell
	// them apart without parsing frame contents.
	SessionID uuid.UUID
}

// Writer appends frames to a .kaspf file through a MappedRegion,
// maintaining the three-level sparse frame table and the unique-task
// label table as it goes.
type Writer struct {
	region MappedRegion
	header fileHeader

	labels     []string
	labelIndex map[string]uint16
	subsystems []uint32

	l1 FrameTable
	l2 *FrameTable
	l3 *FrameTable

	l2Offset uint64
	l3Offset uint64

	lastFrameOffset uint64
	lastFrameSet    bool

	bytesCursor uint64
}

// NewWriter creates the .kaspf file at path, or opens an existing one
// without truncating it, and writes an initial header over its start.
func NewWriter(path string, workerCount, kernelBufferCount int, rdtscFreq uint64) (*Writer, error) {
	region, err := OpenMappedFile(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		region:     region,
		labelIndex: make(map[string]uint16),
		bytesCursor: dynamicStart,
	}
	w.header = fileHeader{
		Major:             Major,
		Minor:             Minor,
		WorkerCount:       uint64(workerCount),
		KernelBufferCount: uint64(kernelBufferCount),
		PID:               int32(os.Getpid()),
		PageSize:          PageSize,
		ClockFreq:         1_000_000_000,
		RdtscFreq:         rdtscFreq,
		TaskCountMax:      MaxUniqueTasks,
		SessionID:         uuid.New(),
	}
	if err := ensureSize(region, int64(dynamicStart)); err != nil {
		return nil, err
	}
	if err := w.flushHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) flushHeader() error {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, byteOrder, w.header)
	pad := make([]byte, HeaderSize-buf.Len())
	buf.Write(pad)
	_, err := w.region.WriteAt(buf.Bytes(), 0)
	if err != nil {
		return err
	}
	return w.flushL1()
}

func (w *Writer) flushL1() error {
	buf := marshalFrameTable(w.l1)
	_, err := w.region.WriteAt(buf, HeaderSize)
	return err
}

func marshalFrameTable(t FrameTable) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, byteOrder, t.NsStart)
	_ = binary.Write(buf, byteOrder, t.NsEnd)
	entries := make([]FTEntry, L3FrameCount)
	copy(entries, t.Entries)
	_ = binary.Write(buf, byteOrder, entries)
	return buf.Bytes()
}

// AllocTaskID returns label's task id, assigning and persisting a new
// one on first use (spec §4.I: "A task ID is assigned once per unique
// label"). Returns ok=false once MaxUniqueTasks is exhausted.
func (w *Writer) AllocTaskID(label string) (id uint16, ok bool) {
	if id, found := w.labelIndex[label]; found {
		return id, true
	}
	if len(w.labels) >= MaxUniqueTasks {
		return 0, false
	}
	id = uint16(len(w.labels))
	w.labels = append(w.labels, label)
	w.labelIndex[label] = id

	var buf [LabelBufSize]byte
	copy(buf[:], label)
	_, _ = w.region.WriteAt(buf[:], int64(HeaderSize+int(id)*LabelBufSize))
	return id, true
}

// SetSubsystem records task id's owning subsystem identifier.
func (w *Writer) SetSubsystem(id uint16, subsystem uint32) {
	for len(w.subsystems) <= int(id) {
		w.subsystems = append(w.subsystems, 0)
	}
	w.subsystems[id] = subsystem
	var buf [4]byte
	byteOrder.PutUint32(buf[:], subsystem)
	off := HeaderSize + LabelTableSize + int(id)*4
	_, _ = w.region.WriteAt(buf[:], int64(off))
}

// WriteFrame appends one completed frame: it patches the previous
// frame's ns_end/tsc_end to this frame's start, allocates a new L2/L3 table at the
// appropriate frame boundaries, serializes the payload, and advances
// the page-aligned byte cursor.
func (w *Writer) WriteFrame(nsStart, nsEnd, tscStart, tscEnd uint64, payload FramePayload) error {
	if w.header.FrameCount >= L1FrameCount {
		return ErrFrameTableFull
	}

	if err := w.patchPreviousFrame(nsStart, tscStart); err != nil {
		return err
	}

	frame := w.header.FrameCount
	if frame%L2FrameCount == 0 {
		w.l2 = &FrameTable{NsStart: nsStart}
		w.l2Offset = w.bytesCursor
		if err := w.appendTable(*w.l2); err != nil {
			return err
		}
		l1i := int(frame / L2FrameCount)
		w.setEntry(&w.l1, l1i, FTEntry{NsStart: nsStart, Offset: w.l2Offset})
	}
	if frame%L3FrameCount == 0 {
		w.l3 = &FrameTable{NsStart: nsStart}
		w.l3Offset = w.bytesCursor
		if err := w.appendTable(*w.l3); err != nil {
			return err
		}
		l2i := int((frame % L2FrameCount) / L3FrameCount)
		w.setEntry(w.l2, l2i, FTEntry{NsStart: nsStart, Offset: w.l3Offset})
		if err := w.rewriteTable(w.l2Offset, *w.l2); err != nil {
			return err
		}
	}

	header := FrameHeader{NsStart: nsStart, NsEnd: nsEnd, TscStart: tscStart, TscEnd: tscEnd}
	raw := marshalFrame(header, payload)
	header.Size = uint64(len(raw))
	raw = marshalFrame(header, payload) // re-marshal with final size recorded

	frameOffset := w.bytesCursor
	if err := w.appendRaw(raw); err != nil {
		return err
	}

	l3i := int(frame % L3FrameCount)
	w.setEntry(w.l3, l3i, FTEntry{NsStart: nsStart, Offset: frameOffset})
	w.l3.NsEnd = nsEnd
	w.l2.NsEnd = nsEnd
	w.l1.NsEnd = nsEnd
	if err := w.rewriteTable(w.l3Offset, *w.l3); err != nil {
		return err
	}
	if err := w.rewriteTable(w.l2Offset, *w.l2); err != nil {
		return err
	}
	if err := w.rewriteTable(HeaderSize, w.l1); err != nil {
		return err
	}

	w.lastFrameOffset = frameOffset
	w.lastFrameSet = true
	w.header.FrameCount++
	w.header.Bytes = w.bytesCursor
	return w.flushHeaderFields()
}

func (w *Writer) setEntry(t *FrameTable, i int, e FTEntry) {
	for len(t.Entries) <= i {
		t.Entries = append(t.Entries, FTEntry{})
	}
	t.Entries[i] = e
	if t.NsEnd < e.NsStart {
		t.NsEnd = e.NsStart
	}
}

func (w *Writer) appendTable(t FrameTable) error {
	return w.appendRaw(marshalFrameTable(t))
}

func (w *Writer) rewriteTable(offset uint64, t FrameTable) error {
	_, err := w.region.WriteAt(marshalFrameTable(t), int64(offset))
	return err
}

func (w *Writer) appendRaw(raw []byte) error {
	padded := padToPage(int64(len(raw)))
	if err := ensureSize(w.region, int64(w.bytesCursor)+padded); err != nil {
		return err
	}
	if _, err := w.region.WriteAt(raw, int64(w.bytesCursor)); err != nil {
		return err
	}
	w.bytesCursor += uint64(padded)
	return nil
}

func (w *Writer) patchPreviousFrame(nsEnd, tscEnd uint64) error {
	if !w.lastFrameSet {
		return nil
	}
	var buf [16]byte
	byteOrder.PutUint64(buf[0:8], nsEnd)
	_, err := w.region.WriteAt(buf[0:8], int64(w.lastFrameOffset)+8) // ns_end is the second u64 field
	if err != nil {
		return err
	}
	byteOrder.PutUint64(buf[8:16], tscEnd)
	_, err = w.region.WriteAt(buf[8:16], int64(w.lastFrameOffset)+24) // tsc_end is the fourth u64 field
	return err
}

func (w *Writer) flushHeaderFields() error {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, byteOrder, w.header)
	_, err := w.region.WriteAt(buf.Bytes(), 0)
	return err
}

// Close flushes and releases the backing region.
func (w *Writer) Close() error {
	if err := w.region.Sync(); err != nil {
		return err
	}
	return w.region.Close()
}
