package profiler

import (
	"sort"

	"github.com/google/uuid"
)

// ProcessedFrame is one decoded frame plus the header fields a reader
// needs to place it in time.
type ProcessedFrame struct {
	NsStart uint64
	NsEnd   uint64
	Header  FrameHeader
	Payload FramePayload

	offset uint64
}

// Reader streams frames out of a .kaspf file, keeping a bounded ring
// of already-decoded frames so repeated Process calls over overlapping
// windows don't re-read from the MappedRegion (spec §4.I "Reader").
type Reader struct {
	region            MappedRegion
	header            fileHeader
	workerCount       int
	kernelBufferCount int

	l1 FrameTable

	ring     []ProcessedFrame
	ringSize int
	low      int // index of oldest entry still valid in ring
}

// OpenReader opens path for streaming reads.
func OpenReader(path string, ringSize int) (*Reader, error) {
	region, err := OpenMappedFile(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{region: region, ringSize: ringSize}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	buf := make([]byte, HeaderSize)
	if _, err := r.region.ReadAt(buf, 0); err != nil {
		return err
	}
	r.header = decodeFileHeader(buf)
	r.workerCount = int(r.header.WorkerCount)
	r.kernelBufferCount = int(r.header.KernelBufferCount)

	l1buf := make([]byte, frameTableFullSize)
	if _, err := r.region.ReadAt(l1buf, HeaderSize); err != nil {
		return err
	}
	r.l1 = decodeFrameTable(l1buf)
	return nil
}

// FrameCount is the number of frames committed to the file so far.
func (r *Reader) FrameCount() uint64 { return r.header.FrameCount }

// SessionID returns the run identity the writer stamped into the
// file's header.
func (r *Reader) SessionID() uuid.UUID { return r.header.SessionID }

// Process decodes every frame whose [ns_start, ns_end) interval
// overlaps [nsStart, nsEnd), returning them in chronological order.
// Frames already resident in the ring are reused rather than re-read.
func (r *Reader) Process(nsStart, nsEnd uint64) ([]ProcessedFrame, error) {
	offsets, err := r.frameOffsetsInRange(nsStart, nsEnd)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessedFrame, 0, len(offsets))
	for _, off := range offsets {
		pf, ok := r.fromRing(off)
		if !ok {
			pf, err = r.decodeFrameAt(off)
			if err != nil {
				return nil, err
			}
			r.pushRing(pf)
		}
		if !overlaps(pf.NsStart, pf.NsEnd, nsStart, nsEnd) {
			continue
		}
		out = append(out, pf)
	}
	return out, nil
}

func (r *Reader) fromRing(offset uint64) (ProcessedFrame, bool) {
	for _, pf := range r.ring {
		if pf.offset == offset {
			return pf, true
		}
	}
	return ProcessedFrame{}, false
}

func (r *Reader) pushRing(pf ProcessedFrame) {
	r.ring = append(r.ring, pf)
	if len(r.ring) > r.ringSize {
		r.ring = r.ring[1:]
	}
}

// frameOffsetsInRange walks L1 -> L2 -> L3, each already sorted by
// construction, collecting frame byte offsets overlapping the window.
func (r *Reader) frameOffsetsInRange(nsStart, nsEnd uint64) ([]uint64, error) {
	var offsets []uint64
	for _, l1e := range r.l1.Entries {
		if l1e.Offset == 0 {
			continue
		}
		l2buf := make([]byte, frameTableFullSize)
		if _, err := r.region.ReadAt(l2buf, int64(l1e.Offset)); err != nil {
			return nil, err
		}
		l2 := decodeFrameTable(l2buf)
		if !overlaps(l2.NsStart, l2.NsEnd, nsStart, nsEnd) {
			continue
		}
		for _, l2e := range l2.Entries {
			if l2e.Offset == 0 {
				continue
			}
			l3buf := make([]byte, frameTableFullSize)
			if _, err := r.region.ReadAt(l3buf, int64(l2e.Offset)); err != nil {
				return nil, err
			}
			l3 := decodeFrameTable(l3buf)
			if !overlaps(l3.NsStart, l3.NsEnd, nsStart, nsEnd) {
				continue
			}
			for _, l3e := range l3.Entries {
				if l3e.Offset == 0 {
					continue
				}
				offsets = append(offsets, l3e.Offset)
			}
		}
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}

func overlaps(aStart, aEnd, bStart, bEnd uint64) bool {
	return aStart < bEnd && bStart < aEnd
}

func (r *Reader) decodeFrameAt(offset uint64) (ProcessedFrame, error) {
	fixed := make([]byte, frameFixedSize)
	if _, err := r.region.ReadAt(fixed, int64(offset)); err != nil {
		return ProcessedFrame{}, err
	}
	size := byteOrder.Uint64(fixed[32:40]) // Size is the fifth u64 field

	full := make([]byte, size)
	if _, err := r.region.ReadAt(full, int64(offset)); err != nil {
		return ProcessedFrame{}, err
	}
	header, payload := unmarshalFrame(full, r.workerCount, r.kernelBufferCount)
	return ProcessedFrame{NsStart: header.NsStart, NsEnd: header.NsEnd, Header: header, Payload: payload, offset: offset}, nil
}

// Close releases the backing region.
func (r *Reader) Close() error { return r.region.Close() }

// decodeFileHeader's byte offsets mirror fileHeader's field order
// exactly as binary.Write lays it out: encoding/binary never inserts
// alignment padding, so each field starts right after the previous
// one's width.
func decodeFileHeader(buf []byte) fileHeader {
	var h fileHeader
	h.Major = byteOrder.Uint32(buf[0:4])
	h.Minor = byteOrder.Uint32(buf[4:8])
	h.FrameCount = byteOrder.Uint64(buf[8:16])
	h.WorkerCount = byteOrder.Uint64(buf[16:24])
	h.KernelBufferCount = byteOrder.Uint64(buf[24:32])
	h.PID = int32(byteOrder.Uint32(buf[32:36]))
	h.PageSize = byteOrder.Uint64(buf[36:44])
	h.ClockFreq = byteOrder.Uint64(buf[44:52])
	h.RdtscFreq = byteOrder.Uint64(buf[52:60])
	h.Bytes = byteOrder.Uint64(buf[60:68])
	h.TaskCountMax = byteOrder.Uint32(buf[68:72])
	copy(h.SessionID[:], buf[72:88])
	return h
}

func decodeFrameTable(buf []byte) FrameTable {
	var t FrameTable
	t.NsStart = byteOrder.Uint64(buf[0:8])
	t.NsEnd = byteOrder.Uint64(buf[8:16])
	t.Entries = make([]FTEntry, L3FrameCount)
	for i := 0; i < L3FrameCount; i++ {
		base := 16 + i*ftEntrySize
		t.Entries[i] = FTEntry{
			NsStart: byteOrder.Uint64(buf[base : base+8]),
			Offset:  byteOrder.Uint64(buf[base+8 : base+16]),
		}
	}
	return t
}
