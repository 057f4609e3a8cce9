// Package strtable implements a string-interned, reference-counted
// object table: callers look identifiers up once, get back a stable
// integer handle, and use the handle everywhere else instead of
// comparing or hashing strings repeatedly.
//
// Go strings are already immutable value types, so the alias-vs-copy
// distinction the original draws between "id aliasing" and "arena
// copy" collapses: Table.Add always stores its own copy (a plain Go
// string assignment), and AddAlias is kept only as a same-behavior
// synonym for callers porting code that cared about the distinction.
package strtable

import (
	"hash/fnv"

	kaspcore "github.com/kasp-editor/kaspcore"
)

// StubIndex is the reserved handle meaning "not found" / "no string".
// It is also the handle of the empty string, which every table
// contains from the moment it is created.
const StubIndex = 0

// MaxIDBytes is the longest identifier Add accepts (spec.md §7:
// "invalid input (e.g. empty id, id > 256 B)").
const MaxIDBytes = 256

type entry struct {
	id    string
	chain int // next entry with the same bucket, -1 if none
	refs  uint32
	live  bool
}

// Table interns strings behind small integer handles. It is not safe
// for concurrent use without external synchronization, matching the
// teacher's container types.
type Table struct {
	entries  []entry
	buckets  map[uint32]int // hash -> first entry index in chain
	free     []int
	growable bool
	logger   kaspcore.Logger
}

// New creates a table pre-populated with the stub entry at StubIndex.
func New(growable bool) *Table {
	t := &Table{
		buckets:  make(map[uint32]int),
		growable: growable,
		logger:   kaspcore.NewNopLogger(),
	}
	t.entries = append(t.entries, entry{id: "", chain: -1, live: true})
	key := hashString("")
	t.buckets[key] = StubIndex
	return t
}

// SetLogger installs the Logger Add reports recoverable conditions
// through; Remove does not log. Defaults to a no-op logger.
func (t *Table) SetLogger(l kaspcore.Logger) {
	if l == nil {
		l = kaspcore.NewNopLogger()
	}
	t.logger = l
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (t *Table) reserve() int {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.entries = append(t.entries, entry{})
	return len(t.entries) - 1
}

// Lookup returns the handle for id if present, or (StubIndex, false).
func (t *Table) Lookup(id string) (index int, ok bool) {
	key := hashString(id)
	for i, exists := t.buckets[key]; exists; i, exists = t.chainNext(i) {
		if t.entries[i].live && t.entries[i].id == id {
			return i, true
		}
	}
	return StubIndex, false
}

func (t *Table) chainNext(i int) (int, bool) {
	next := t.entries[i].chain
	if next < 0 {
		return 0, false
	}
	return next, true
}

// Add interns id and returns its handle. Per spec.md §7, invalid input
// (empty id, id longer than MaxIDBytes) and a collision with an
// already-present id both return (StubIndex, false) after logging a
// warning, rather than allocating a slot.
func (t *Table) Add(id string) (index int, ok bool) {
	if id == "" || len(id) > MaxIDBytes {
		t.logger.Warnf("strtable: invalid identifier (len=%d, max=%d)", len(id), MaxIDBytes)
		return StubIndex, false
	}
	if _, exists := t.Lookup(id); exists {
		t.logger.Warnf("strtable: identifier collision: %q already present", id)
		return StubIndex, false
	}

	key := hashString(id)
	idx := t.reserve()
	t.entries[idx] = entry{id: id, chain: -1, live: true}
	if head, exists := t.buckets[key]; exists {
		t.entries[idx].chain = head
	}
	t.buckets[key] = idx
	return idx, true
}

// AddAlias is behaviorally identical to Add; see the package doc.
func (t *Table) AddAlias(id string) (index int, ok bool) {
	return t.Add(id)
}

// Remove looks id up and frees its slot. It is a precondition
// violation (and a no-op here, an assertion failure in the original)
// to remove an identifier whose reference count is nonzero. Removing
// an identifier that is not present does nothing.
func (t *Table) Remove(id string) {
	idx, ok := t.Lookup(id)
	if !ok || idx == StubIndex {
		return
	}
	if t.entries[idx].refs != 0 {
		return
	}
	t.unlink(idx)
}

func (t *Table) unlink(idx int) {
	key := hashString(t.entries[idx].id)
	if head := t.buckets[key]; head == idx {
		if next := t.entries[idx].chain; next >= 0 {
			t.buckets[key] = next
		} else {
			delete(t.buckets, key)
		}
	} else {
		for i := t.buckets[key]; ; i = t.entries[i].chain {
			if t.entries[i].chain == idx {
				t.entries[i].chain = t.entries[idx].chain
				break
			}
		}
	}
	t.entries[idx] = entry{}
	t.free = append(t.free, idx)
}

// Value returns the interned string at handle, or ("", false) if the
// handle is out of range or currently free.
func (t *Table) Value(handle int) (string, bool) {
	if handle < 0 || handle >= len(t.entries) || !t.entries[handle].live {
		return "", false
	}
	return t.entries[handle].id, true
}

// Reference looks id up and, if found, increments its reference count
// before returning its handle.
func (t *Table) Reference(id string) (index int, ok bool) {
	idx, ok := t.Lookup(id)
	if !ok {
		return StubIndex, false
	}
	t.entries[idx].refs++
	return idx, true
}

// Dereference decrements handle's reference count. Dereferencing a
// handle already at zero references is a no-op (an assertion failure
// in the original).
func (t *Table) Dereference(handle int) {
	if handle < 0 || handle >= len(t.entries) || !t.entries[handle].live {
		return
	}
	if t.entries[handle].refs == 0 {
		return
	}
	t.entries[handle].refs--
}

// RefCount reports handle's current reference count, or 0 if handle is
// out of range or free.
func (t *Table) RefCount(handle int) uint32 {
	if handle < 0 || handle >= len(t.entries) || !t.entries[handle].live {
		return 0
	}
	return t.entries[handle].refs
}

// Flush resets the table to just the stub entry.
func (t *Table) Flush() {
	t.entries = t.entries[:0]
	t.free = t.free[:0]
	for k := range t.buckets {
		delete(t.buckets, k)
	}
	t.entries = append(t.entries, entry{id: "", chain: -1, live: true})
	t.buckets[hashString("")] = StubIndex
}
