package profiler

import (
	"encoding/binary"
	"io"
	"os"
)

// PageSize is the alignment every offset in the .kaspf layout is
// rounded up to.
const PageSize = 4096

// MappedRegion abstracts the platform mmap the original writes
// through, per spec §9 ("abstract over the platform with a
// MappedRegion type owning the mapping; page alignment is a
// precondition of the file layout"). No module in the example corpus
// both targets this spec's domain and uses a real mmap syscall
// binding, so the default implementation backs the region with
// ordinary ReadAt/WriteAt file I/O — behaviorally equivalent for this
// package's access pattern (sequential frame appends, random-access
// table patches) and portable without a platform build tag. A real
// mmap-backed MappedRegion can be swapped in behind this same
// interface without touching Writer/Reader.
type MappedRegion interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
	Close() error
}

// fileRegion is the default MappedRegion, a thin wrapper over *os.File.
type fileRegion struct{ f *os.File }

// OpenMappedFile opens (creating if necessary) path as a MappedRegion.
func OpenMappedFile(path string) (MappedRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileRegion{f: f}, nil
}

func (r *fileRegion) ReadAt(p []byte, off int64) (int, error)  { return r.f.ReadAt(p, off) }
func (r *fileRegion) WriteAt(p []byte, off int64) (int, error) { return r.f.WriteAt(p, off) }
func (r *fileRegion) Sync() error                              { return r.f.Sync() }
func (r *fileRegion) Close() error                              { return r.f.Close() }

// padToPage returns n rounded up to the next PageSize multiple.
func padToPage(n int64) int64 {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

var byteOrder = binary.LittleEndian

// ensureSize grows the backing file to at least n bytes so later
// WriteAt calls at higher offsets don't leave a hole the next
// ReadAt would fail strangely on with some MappedRegion backends.
func ensureSize(r MappedRegion, n int64) error {
	fr, ok := r.(*fileRegion)
	if !ok {
		return nil
	}
	cur, err := fr.f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if cur < n {
		return fr.f.Truncate(n)
	}
	return nil
}
