// Package record implements the append-only, snapshot-readable store of
// ingested candidate lines (the "Record Store").
//
// A Store is a sequence of immutable fixed-capacity chunks plus one mutable
// tail chunk. Append places the element into the tail; when the tail fills,
// it is frozen (wrapped in a value that is never mutated again and shared
// freely across goroutines) and a new tail is allocated. Length is kept in
// an atomic counter so readers observe it without synchronizing with
// writers.
package record

import (
	"sync"
	"sync/atomic"
)

// ChunkSize is the capacity of one frozen chunk.
const ChunkSize = 1024

// Ref identifies a record's position within a Store: its dense ingestion
// index, unique within one Run.
type Ref struct {
	Run   uint64
	Index uint32
}

// Record is one ingested line. Immutable after construction.
type Record struct {
	Ref     Ref
	Raw     string // original bytes, decoded lossily as UTF-8
	Display string // with-nth transformed text for rendering, if set; else empty (readers use Raw)
	Match   string // nth-restricted text fed to the match engine, if set; else empty (readers use Raw)
}

type chunk struct {
	items [ChunkSize]Record
	n     int
}

// Store is a two-level append-only container of Records for a single Run.
// Append never blocks readers and never moves already-visible elements.
type Store struct {
	run uint64

	mu     sync.Mutex
	frozen []*chunk // immutable once appended to this slice under mu; read via snapshot copy
	tail   *chunk

	length atomic.Uint32
}

// New creates an empty Store for the given run number.
func New(run uint64) *Store {
	return &Store{run: run, tail: &chunk{}}
}

// Run returns the run number this store was created for.
func (s *Store) Run() uint64 { return s.run }

// Len returns the number of appended records. Lock-free.
func (s *Store) Len() int { return int(s.length.Load()) }

// Append adds one record, assigning it the next dense index in this run.
// Amortized O(1).
func (s *Store) Append(raw, display, match string) Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := uint32(len(s.frozen))*ChunkSize + uint32(s.tail.n)
	ref := Ref{Run: s.run, Index: idx}
	s.tail.items[s.tail.n] = Record{Ref: ref, Raw: raw, Display: display, Match: match}
	s.tail.n++
	s.length.Store(idx + 1)

	if s.tail.n == ChunkSize {
		s.frozen = append(s.frozen, s.tail)
		s.tail = &chunk{}
	}
	return ref
}

// Snapshot is a read-only, lock-free view over a contiguous range of a
// Store's records at the time it was taken. Frozen chunks are shared by
// pointer (they are never mutated again once frozen), so taking a snapshot
// only copies the small mutable tail. Further appends to the Store do not
// affect a Snapshot already taken, and a Snapshot remains valid even if the
// Store is later cleared.
type Snapshot struct {
	run    uint64
	skip   int // records to skip in the first chunk
	frozen []*chunk
	tail   *chunk // private copy of the tail as it was at snapshot time
}

// Run returns the run number the snapshot was taken against.
func (sn Snapshot) Run() uint64 { return sn.run }

// Len returns the number of records visible in the snapshot.
func (sn Snapshot) Len() int {
	total := -sn.skip
	for _, c := range sn.frozen {
		total += c.n
	}
	total += sn.tail.n
	return total
}

// At returns the i-th record visible in the snapshot (0-based).
func (sn Snapshot) At(i int) Record {
	i += sn.skip
	for _, c := range sn.frozen {
		if i < c.n {
			return c.items[i]
		}
		i -= c.n
	}
	return sn.tail.items[i]
}

// Snapshot returns a handle covering [from, Len()) that may be read without
// locks and remains valid for its lifetime regardless of further appends.
func (s *Store) Snapshot(from int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn := Snapshot{run: s.run, skip: from}
	skip := from
	start := 0
	for start < len(s.frozen) && skip >= s.frozen[start].n {
		skip -= s.frozen[start].n
		start++
	}
	sn.skip = skip
	sn.frozen = s.frozen[start:]

	tailCopy := &chunk{n: s.tail.n}
	copy(tailCopy.items[:tailCopy.n], s.tail.items[:s.tail.n])
	sn.tail = tailCopy
	return sn
}

// Clear discards all chunks atomically. Any outstanding Snapshot remains
// valid, since snapshots keep references to the frozen chunks, which are
// never mutated, and their own copy of the tail.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = nil
	s.tail = &chunk{}
	s.length.Store(0)
}

// Rerun discards all chunks and rebinds the Store to a new run number, for
// reuse across an ingestion restart triggered by a command change (see the
// Design Note on the global run number in spec.md §9). Refs minted before
// the call keep their old Run tag and so are never confused with Refs
// minted after it, even though both may carry the same Index.
func (s *Store) Rerun(run uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
	s.frozen = nil
	s.tail = &chunk{}
	s.length.Store(0)
}
