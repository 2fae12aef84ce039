package manager

import (
	"fmt"
	"math/rand"
	"net"
	"sync"

	"golang.org/x/exp/slices"
)

// NodeState is a storage node's place in the allocation lifecycle
// (spec.md §3: "a state ∈ {Free, InDSS}").
type NodeState int

const (
	Free NodeState = iota
	InDSS
)

func (s NodeState) String() string {
	if s == InDSS {
		return "InDSS"
	}
	return "Free"
}

const maxNameLen = 15

// User is a registered client endpoint (spec.md §3 user record).
type User struct {
	Name  string
	IP    string
	MPort int
	CPort int
}

// Node is a registered storage node (spec.md §3 storage-node record).
type Node struct {
	Name  string
	IP    string
	MPort int
	CPort int
	State NodeState
}

// FileRecord is one committed file on a DSS (spec.md §3 file record).
type FileRecord struct {
	Name  string
	Size  int64
	Owner string
}

// pendingCopy is metadata staged between copy's phase 1 and phase 2
// (spec.md §4.2, §9: "Pending copy").
type pendingCopy struct {
	TxID     string
	ClientIP string
	File     FileRecord
}

// DSS is a configured distributed storage system: an ordered disk list,
// the striping unit all writes to it use, and its committed files.
type DSS struct {
	Name         string
	Disks        []string
	StripingUnit int
	Files        []FileRecord
	pending      *pendingCopy
}

// decomm tracks a DSS mid-teardown between decommission-dss and
// decommission-complete, the same shape as pendingCopy but with no file
// payload to commit — only disks to free.
type decomm struct {
	TxID  string
	IP    string
	Disks []string
}

// Registry is the manager's single authoritative store of users, storage
// nodes, and configured distributed storage systems (DSSs), plus the
// in-flight two-phase transactions layered on top of them. It is the only
// place manager state lives — the request loop in Server never keeps its
// own copies, it always reads and mutates through Registry's methods.
//
// State owned:
//   - users: registered client endpoints, keyed by name
//   - nodes: registered storage nodes, keyed by name, each either Free or
//     InDSS
//   - dss: configured DSSs, keyed by name, each with its ordered disk list
//     and committed file records
//   - decomms: DSSs mid-teardown between decommission-dss and
//     decommission-complete
//
// Concurrency Model:
//   - The manager's request loop is single-threaded (spec.md §5), so in
//     practice only one goroutine ever calls into Registry at a time from
//     that loop.
//   - mu still guards every field, because the Prometheus metrics
//     Collector samples Snapshot from a separate goroutine on a timer.
//   - Every exported method takes the lock for its full duration; none
//     hold it across a network call.
//
// Thread Safety:
// All exported methods are safe for concurrent use. Returned *DSS/*Node
// values alias internal state and must not be mutated by callers outside
// this package; descriptor.go takes a copy before handing data to the
// wire layer.
type Registry struct {
	mu      sync.Mutex
	users   map[string]*User
	nodes   map[string]*Node
	dss     map[string]*DSS
	decomms map[string]*decomm // dss name -> in-flight decommission
	rng     *rand.Rand
}

// NewRegistry returns an empty registry with its random source seeded
// from seed. copy's DSS selection (BeginCopy) draws on this source to
// choose uniformly among eligible DSSs, so tests that need reproducible
// selection should pass a fixed seed; cmd/manager seeds it from
// time.Now().UnixNano() at startup.
//
// Parameters:
//   - seed: seed for the DSS-selection random source
//
// Returns:
//   - an empty Registry with no users, nodes, DSSs, or pending
//     transactions
//
// Example:
//
//	registry := manager.NewRegistry(time.Now().UnixNano())
//	srv := manager.NewServer(conn, registry, log)
func NewRegistry(seed int64) *Registry {
	return &Registry{
		users:   make(map[string]*User),
		nodes:   make(map[string]*Node),
		dss:     make(map[string]*DSS),
		decomms: make(map[string]*decomm),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("name %q exceeds %d characters", name, maxNameLen)
	}
	return nil
}

func validateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address %q", ip)
	}
	return nil
}

// portInUse reports whether port collides with any registered user or
// node's management or client port. Callers must hold mu.
func (r *Registry) portInUse(port int) bool {
	for _, u := range r.users {
		if u.MPort == port || u.CPort == port {
			return true
		}
	}
	for _, n := range r.nodes {
		if n.MPort == port || n.CPort == port {
			return true
		}
	}
	return false
}

// RegisterUser creates a user, enforcing name and port uniqueness across
// both users and nodes (spec.md §4.2 register-user).
func (r *Registry) RegisterUser(name, ip string, mport, cport int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateIP(ip); err != nil {
		return err
	}
	if _, exists := r.users[name]; exists {
		return fmt.Errorf("user %q already registered", name)
	}
	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("name %q already registered as a node", name)
	}
	if r.portInUse(mport) || r.portInUse(cport) {
		return fmt.Errorf("port collision for user %q", name)
	}

	r.users[name] = &User{Name: name, IP: ip, MPort: mport, CPort: cport}
	return nil
}

// RegisterDisk creates a storage node in state Free, same uniqueness rules
// as RegisterUser (spec.md §4.2 register-disk).
func (r *Registry) RegisterDisk(name, ip string, mport, cport int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateIP(ip); err != nil {
		return err
	}
	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("node %q already registered", name)
	}
	if _, exists := r.users[name]; exists {
		return fmt.Errorf("name %q already registered as a user", name)
	}
	if r.portInUse(mport) || r.portInUse(cport) {
		return fmt.Errorf("port collision for node %q", name)
	}

	r.nodes[name] = &Node{Name: name, IP: ip, MPort: mport, CPort: cport, State: Free}
	return nil
}

// DeregisterUser removes a user; fails if absent.
func (r *Registry) DeregisterUser(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[name]; !exists {
		return fmt.Errorf("no such user %q", name)
	}
	delete(r.users, name)
	return nil
}

// DeregisterDisk removes a node; fails if absent or InDSS (spec.md §4.2
// deregister-disk).
func (r *Registry) DeregisterDisk(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, exists := r.nodes[name]
	if !exists {
		return fmt.Errorf("no such node %q", name)
	}
	if n.State == InDSS {
		return fmt.Errorf("node %q is InDSS, decommission its DSS first", name)
	}
	delete(r.nodes, name)
	return nil
}

var validStripingUnits = []int{128, 256, 512, 1024}

// ConfigureDSS allocates a new DSS over n currently-Free nodes, chosen
// arbitrarily (spec.md §4.2 configure-dss leaves node selection
// unordered, unlike copy's DSS selection which must be uniform random).
func (r *Registry) ConfigureDSS(name string, n, stripingUnit int) (*DSS, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, exists := r.dss[name]; exists {
		return nil, fmt.Errorf("DSS %q already configured", name)
	}
	if n < 3 {
		return nil, fmt.Errorf("n=%d is below the minimum of 3 drives", n)
	}
	if !slices.Contains(validStripingUnits, stripingUnit) {
		return nil, fmt.Errorf("striping unit %d is not one of %v", stripingUnit, validStripingUnits)
	}

	var free []*Node
	for _, node := range r.nodes {
		if node.State == Free {
			free = append(free, node)
		}
	}
	if len(free) < n {
		return nil, fmt.Errorf("only %d Free nodes available, need %d", len(free), n)
	}

	chosen := free[:n]
	disks := make([]string, n)
	for i, node := range chosen {
		node.State = InDSS
		disks[i] = node.Name
	}

	d := &DSS{Name: name, Disks: disks, StripingUnit: stripingUnit}
	r.dss[name] = d
	return d, nil
}

// DSSView pairs a DSS snapshot with its resolved node records, the shape
// callers need to render a full descriptor.
type DSSView struct {
	DSS   *DSS
	Nodes []*Node
}

// Ls enumerates every configured DSS and its stored files (spec.md §4.2
// ls). It fails when the registry has no DSSs at all.
func (r *Registry) Ls() ([]DSSView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dss) == 0 {
		return nil, fmt.Errorf("no DSS configured")
	}
	out := make([]DSSView, 0, len(r.dss))
	for _, d := range r.dss {
		cp := *d
		cp.Files = append([]FileRecord{}, d.Files...)
		cp.Disks = append([]string{}, d.Disks...)
		out = append(out, DSSView{DSS: &cp, Nodes: r.diskEndpoints(d)})
	}
	return out, nil
}

// diskEndpoints resolves a DSS's ordered disk names to full node records.
// Callers must hold mu.
func (r *Registry) diskEndpoints(d *DSS) []*Node {
	out := make([]*Node, 0, len(d.Disks))
	for _, name := range d.Disks {
		out = append(out, r.nodes[name])
	}
	return out
}

// BeginCopy picks a DSS uniformly at random among all configured DSSs,
// stages a pending copy on it, and returns the DSS along with its
// resolved disk endpoints (spec.md §4.2 copy).
func (r *Registry) BeginCopy(filename string, size int64, owner, txID, clientIP string) (*DSS, []*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dss) == 0 {
		return nil, nil, fmt.Errorf("no DSS configured")
	}

	names := make([]string, 0, len(r.dss))
	for name := range r.dss {
		names = append(names, name)
	}
	slices.Sort(names)
	chosen := r.dss[names[r.rng.Intn(len(names))]]

	if chosen.pending != nil {
		return nil, nil, fmt.Errorf("DSS %q already has a pending copy", chosen.Name)
	}
	chosen.pending = &pendingCopy{
		TxID:     txID,
		ClientIP: clientIP,
		File:     FileRecord{Name: filename, Size: size, Owner: owner},
	}

	cp := *chosen
	return &cp, r.diskEndpoints(chosen), nil
}

// CommitCopy finalizes the pending copy on dssName if txID and the
// client's address match what BeginCopy staged (spec.md §9's
// strengthened phase-1/phase-2 correlation).
func (r *Registry) CommitCopy(dssName, txID, clientIP string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.dss[dssName]
	if !exists {
		return fmt.Errorf("no such DSS %q", dssName)
	}
	if d.pending == nil {
		return fmt.Errorf("DSS %q has no pending copy", dssName)
	}
	if d.pending.TxID != txID || d.pending.ClientIP != clientIP {
		return fmt.Errorf("copy-complete does not match the pending transaction on %q", dssName)
	}

	d.Files = append(d.Files, d.pending.File)
	d.pending = nil
	return nil
}

// AbortPendingCopy clears a DSS's pending copy without committing it,
// used when phase 2 never arrives (spec.md §9: "a crash or lost phase 2
// leaves the data-plane side-effects without a metadata record; this is
// reported, not recovered").
func (r *Registry) AbortPendingCopy(dssName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, exists := r.dss[dssName]; exists {
		d.pending = nil
	}
}

// FindFileDSS locates the DSS holding filename (spec.md §4.2 read).
func (r *Registry) FindFileDSS(filename string) (*DSS, []*Node, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.dss {
		for _, f := range d.Files {
			if f.Name == filename {
				cp := *d
				return &cp, r.diskEndpoints(d), f.Size, nil
			}
		}
	}
	return nil, nil, 0, fmt.Errorf("file %q not found on any DSS", filename)
}

// DiskFailure resolves dssName to its descriptor and the full list of
// filenames it holds, for a client-driven reconstruction (spec.md §4.2
// disk-failure).
func (r *Registry) DiskFailure(dssName string) (*DSS, []*Node, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.dss[dssName]
	if !exists {
		return nil, nil, nil, fmt.Errorf("no such DSS %q", dssName)
	}
	files := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, f.Name)
	}
	cp := *d
	return &cp, r.diskEndpoints(d), files, nil
}

// BeginDecommission stages dssName for teardown and returns its
// descriptor (spec.md §4.2). decommission-dss intentionally reuses copy's
// reply shape so both two-phase flows share one client-side decode path.
func (r *Registry) BeginDecommission(dssName, txID, clientIP string) (*DSS, []*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.dss[dssName]
	if !exists {
		return nil, nil, fmt.Errorf("no such DSS %q", dssName)
	}
	if _, inFlight := r.decomms[dssName]; inFlight {
		return nil, nil, fmt.Errorf("DSS %q is already being decommissioned", dssName)
	}

	r.decomms[dssName] = &decomm{TxID: txID, IP: clientIP, Disks: append([]string{}, d.Disks...)}
	cp := *d
	return &cp, r.diskEndpoints(d), nil
}

// CommitDecommission frees every node in the staged DSS and removes it
// from the registry, after matching txID and client address.
func (r *Registry) CommitDecommission(dssName, txID, clientIP string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc, exists := r.decomms[dssName]
	if !exists {
		return fmt.Errorf("DSS %q has no pending decommission", dssName)
	}
	if dc.TxID != txID || dc.IP != clientIP {
		return fmt.Errorf("decommission-complete does not match the pending transaction on %q", dssName)
	}

	for _, name := range dc.Disks {
		if n, ok := r.nodes[name]; ok {
			n.State = Free
		}
	}
	delete(r.dss, dssName)
	delete(r.decomms, dssName)
	return nil
}

// AbortDecommission cancels a staged decommission without freeing any
// node, used when phase 2 never arrives.
func (r *Registry) AbortDecommission(dssName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.decomms, dssName)
}

// Counts reports current registry sizes for diagnostics. spec.md §1 keeps
// the manager's bookkeeping counters out of core, but a running manager
// with nothing to scrape would be out of step with how the rest of this
// codebase operates, so these feed the Prometheus gauges in metrics.go.
type Counts struct {
	Users      int
	Nodes      int
	NodesInDSS int
	DSSs       int
	Files      int
}

// Snapshot returns the current Counts.
func (r *Registry) Snapshot() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Counts{Users: len(r.users), Nodes: len(r.nodes), DSSs: len(r.dss)}
	for _, n := range r.nodes {
		if n.State == InDSS {
			c.NodesInDSS++
		}
	}
	for _, d := range r.dss {
		c.Files += len(d.Files)
	}
	return c
}
