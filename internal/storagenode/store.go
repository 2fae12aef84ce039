package storagenode

import (
	"sync"

	"github.com/dreamware/dssraid/internal/wire"
)

// Block is one stored (filename, stripe) entry: its role within the stripe
// and its raw bytes.
type Block struct {
	Role wire.Role
	Data []byte
}

// Stats reports point-in-time counters over a Store.
type Stats struct {
	Files   int
	Blocks  int
	Bytes   int
}

// Store is the node's in-memory block store, keyed first by filename and
// then by stripe index. It holds no durable state (spec.md Non-goals) —
// everything lives in these two nested maps and is gone on process exit.
//
// Storage model:
//   - files maps a filename to its stripe map
//   - each stripe map holds at most one Block per stripe index, data or
//     parity role tagged on the Block itself
//   - overwrites are allowed (spec.md §3 block record: "Overwrites are
//     allowed"), so a second Write for the same (file, stripe) replaces
//     the first rather than erroring
//
// Concurrency Model:
//   - Server drives every Write/Read/Fail/DeleteDSS call from a single
//     sequential worker goroutine (spec.md §5), so in practice calls
//     never race each other.
//   - mu still guards every access, because ManagementEndpoint's stats
//     reporting (once wired to Stats) would otherwise read concurrently
//     with the peer worker's writes.
//
// Thread Safety:
// All exported methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string]map[int]Block
}

// NewStore returns an empty block store with no files.
//
// Returns:
//   - a Store ready for Write/Read/Fail/DeleteDSS/Stats
//
// Example:
//
//	store := storagenode.NewStore()
//	srv := storagenode.NewServer(peerConn, store, log)
func NewStore() *Store {
	return &Store{files: make(map[string]map[int]Block)}
}

// Write upserts a block, creating the file's stripe map on first write.
//
// Parameters:
//   - file: the filename the block belongs to
//   - stripe: the stripe index within file
//   - role: whether this block holds data or parity for its stripe
//   - data: the block's raw bytes; copied, so the caller's slice may be
//     reused after Write returns
func (s *Store) Write(file string, stripe int, role wire.Role, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stripes, ok := s.files[file]
	if !ok {
		stripes = make(map[int]Block)
		s.files[file] = stripes
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	stripes[stripe] = Block{Role: role, Data: stored}
}

// Read returns the block for (file, stripe) and whether it exists.
func (s *Store) Read(file string, stripe int) (Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stripes, ok := s.files[file]
	if !ok {
		return Block{}, false
	}
	b, ok := stripes[stripe]
	return b, ok
}

// Fail clears the entire store, simulating a disk loss (spec.md §4.1:
// "FAIL ... Clear entire in-memory store").
func (s *Store) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]map[int]Block)
}

// DeleteDSS drops every file the node holds. A node participates in at most
// one DSS at a time (spec.md §3 invariant 4), so "delete this DSS's files"
// and "delete everything" coincide; dssName is accepted only for logging
// and symmetry with the wire protocol. A future multi-DSS-per-node design
// would need real DSS-to-file indexing here instead.
func (s *Store) DeleteDSS(dssName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]map[int]Block)
}

// Stats reports the store's current size.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Files: len(s.files)}
	for _, stripes := range s.files {
		st.Blocks += len(stripes)
		for _, b := range stripes {
			st.Bytes += len(b.Data)
		}
	}
	return st
}
