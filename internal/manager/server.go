package manager

import (
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// phaseTwoTimeout bounds how long the manager blocks on a two-phase
// commit's follow-up datagram. The base protocol defines none (spec.md
// §9(c)); without a bound a vanished client would wedge the manager's
// single-threaded loop forever.
const phaseTwoTimeout = 10 * time.Second

// Server is the manager's request/reply loop: one UDP datagram in, one
// reply out, strictly single-threaded (spec.md §5). It owns a Registry and
// dispatches every verb spec.md §4.2 defines to a handler that mutates the
// registry and writes a SUCCESS/FAILURE reply.
//
// Request lifecycle:
//  1. ReadFrom blocks for the next datagram on conn
//  2. handle tokenizes it into a wire.ManagerRequest and dispatches on Verb
//  3. the handler validates arguments, calls into Registry, and replies
//  4. for copy and decommission-dss, the handler then blocks this same
//     goroutine on awaitPhaseTwo for the transaction's phase-2 follow-up,
//     so no other request is serviced until that follow-up arrives or
//     phaseTwoTimeout expires
//
// Concurrency Model:
//   - Exactly one goroutine drives Serve's loop; there is no per-request
//     goroutine, which is what makes Registry's single-threaded accesses
//     safe without Server itself taking a lock.
//   - The phase-2 block in step 4 is deliberate: spec.md §5 requires the
//     manager not interleave other requests during that window.
//
// Thread Safety:
// Server is not safe for concurrent Serve calls from multiple goroutines;
// exactly one is expected to run for the lifetime of the daemon.
type Server struct {
	registry *Registry
	conn     *netutil.ListenerConn
	log      zerolog.Logger
}

// NewServer wraps a bound listener socket and a Registry into a manager
// daemon ready to Serve.
//
// Parameters:
//   - conn: a UDP socket already bound via netutil.Listen
//   - registry: the Registry this daemon's requests will read and mutate
//   - log: the component logger for request-handling diagnostics
//
// Returns:
//   - a Server ready for Serve to be called once
//
// Example:
//
//	conn, _ := netutil.Listen(13100)
//	srv := manager.NewServer(conn, manager.NewRegistry(seed), log)
//	go srv.Serve()
func NewServer(conn *netutil.ListenerConn, registry *Registry, log zerolog.Logger) *Server {
	return &Server{registry: registry, conn: conn, log: log}
}

// Serve drains the manager socket one datagram at a time until conn is
// closed or a read error occurs; callers stop the loop by closing conn,
// the same shutdown convention storagenode.Server uses.
//
// Returns:
//   - the error that ended the loop, typically the *net.OpError a closed
//     socket produces on its next ReadFrom
func (s *Server) Serve() error {
	for {
		data, addr, err := s.conn.ReadFrom(netutil.ControlBufferSize)
		if err != nil {
			return err
		}
		s.handle(data, addr)
	}
}

func (s *Server) reply(addr *net.UDPAddr, text string) {
	if err := s.conn.WriteTo([]byte(text), addr); err != nil {
		s.log.Warn().Err(err).Str("to", addr.String()).Msg("failed to send manager reply")
	}
}

func (s *Server) handle(data []byte, addr *net.UDPAddr) {
	req := wire.ParseManagerRequest(data)
	if req.Verb == "" {
		s.reply(addr, wire.Failure("empty request"))
		return
	}

	switch req.Verb {
	case wire.VerbRegisterUser:
		s.handleRegisterUser(req, addr)
	case wire.VerbRegisterDisk:
		s.handleRegisterDisk(req, addr)
	case wire.VerbDeregisterUser:
		s.handleDeregisterUser(req, addr)
	case wire.VerbDeregisterDisk:
		s.handleDeregisterDisk(req, addr)
	case wire.VerbConfigureDSS:
		s.handleConfigureDSS(req, addr)
	case wire.VerbLs:
		s.handleLs(addr)
	case wire.VerbCopy:
		s.handleCopy(req, addr)
	case wire.VerbRead:
		s.handleRead(req, addr)
	case wire.VerbDiskFailure:
		s.handleDiskFailure(req, addr)
	case wire.VerbDecommissionDSS:
		s.handleDecommissionDSS(req, addr)
	case wire.VerbRecoveryComplete:
		if len(req.Args) != 1 {
			s.failf(addr, req.Verb, "usage: recovery-complete <dssname>")
			return
		}
		s.succeed(addr, req.Verb)
	default:
		s.log.Warn().Str("verb", req.Verb).Msg("unknown manager verb")
		s.reply(addr, wire.Failure("unknown verb "+req.Verb))
		RequestsTotal.WithLabelValues("unknown", "failure").Inc()
	}
}

func (s *Server) handleRegisterUser(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbRegisterUser
	if len(req.Args) != 4 {
		s.failf(addr, verb, "usage: register-user <name> <ip> <mport> <cport>")
		return
	}
	mport, err1 := strconv.Atoi(req.Args[2])
	cport, err2 := strconv.Atoi(req.Args[3])
	if err1 != nil || err2 != nil {
		s.failf(addr, verb, "bad port number")
		return
	}
	if err := s.registry.RegisterUser(req.Args[0], req.Args[1], mport, cport); err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.succeed(addr, verb)
}

func (s *Server) handleRegisterDisk(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbRegisterDisk
	if len(req.Args) != 4 {
		s.failf(addr, verb, "usage: register-disk <name> <ip> <mport> <cport>")
		return
	}
	mport, err1 := strconv.Atoi(req.Args[2])
	cport, err2 := strconv.Atoi(req.Args[3])
	if err1 != nil || err2 != nil {
		s.failf(addr, verb, "bad port number")
		return
	}
	if err := s.registry.RegisterDisk(req.Args[0], req.Args[1], mport, cport); err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.succeed(addr, verb)
}

func (s *Server) handleDeregisterUser(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbDeregisterUser
	if len(req.Args) != 1 {
		s.failf(addr, verb, "usage: deregister-user <name>")
		return
	}
	if err := s.registry.DeregisterUser(req.Args[0]); err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.succeed(addr, verb)
}

func (s *Server) handleDeregisterDisk(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbDeregisterDisk
	if len(req.Args) != 1 {
		s.failf(addr, verb, "usage: deregister-disk <name>")
		return
	}
	if err := s.registry.DeregisterDisk(req.Args[0]); err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.succeed(addr, verb)
}

func (s *Server) handleConfigureDSS(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbConfigureDSS
	if len(req.Args) != 3 {
		s.failf(addr, verb, "usage: configure-dss <name> <n> <S>")
		return
	}
	n, err1 := strconv.Atoi(req.Args[1])
	su, err2 := strconv.Atoi(req.Args[2])
	if err1 != nil || err2 != nil {
		s.failf(addr, verb, "bad numeric argument")
		return
	}
	if _, err := s.registry.ConfigureDSS(req.Args[0], n, su); err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.succeed(addr, verb)
}

func (s *Server) handleLs(addr *net.UDPAddr) {
	const verb = wire.VerbLs
	dsss, err := s.registry.Ls()
	if err != nil {
		s.failf(addr, verb, err.Error())
		return
	}

	var lines []string
	for _, v := range dsss {
		lines = append(lines, wire.EncodeDSSDescriptor(DSSDescriptor(v.DSS, v.Nodes)))
		for _, f := range v.DSS.Files {
			lines = append(lines, f.Name+" "+strconv.FormatInt(f.Size, 10)+" "+f.Owner)
		}
	}
	s.reply(addr, wire.SuccessPayload(lines...))
	RequestsTotal.WithLabelValues(verb, "success").Inc()
}

func (s *Server) handleCopy(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbCopy
	if len(req.Args) != 3 {
		s.failf(addr, verb, "usage: copy <filename> <size> <owner>")
		return
	}
	size, err := strconv.ParseInt(req.Args[1], 10, 64)
	if err != nil {
		s.failf(addr, verb, "bad size")
		return
	}
	filename, owner := req.Args[0], req.Args[2]

	txID := uuid.NewString()
	d, nodes, err := s.registry.BeginCopy(filename, size, owner, txID, addr.IP.String())
	if err != nil {
		s.failf(addr, verb, err.Error())
		return
	}

	desc := DSSDescriptor(d, nodes)
	desc.TxID = txID
	s.reply(addr, wire.SuccessPayload(wire.EncodeDSSDescriptor(desc)))
	RequestsTotal.WithLabelValues(verb, "success").Inc()

	s.awaitPhaseTwo(verb, addr, func(followUp wire.ManagerRequest, followAddr *net.UDPAddr) {
		if followUp.Verb != wire.VerbCopyComplete || len(followUp.Args) != 1 {
			s.registry.AbortPendingCopy(d.Name)
			s.failf(followAddr, wire.VerbCopyComplete, "expected copy-complete <txid>")
			return
		}
		if err := s.registry.CommitCopy(d.Name, followUp.Args[0], followAddr.IP.String()); err != nil {
			s.registry.AbortPendingCopy(d.Name)
			s.failf(followAddr, wire.VerbCopyComplete, err.Error())
			return
		}
		s.succeed(followAddr, wire.VerbCopyComplete)
	}, func() {
		s.registry.AbortPendingCopy(d.Name)
	})
}

func (s *Server) handleRead(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbRead
	if len(req.Args) != 2 {
		s.failf(addr, verb, "usage: read <user> <filename>")
		return
	}
	filename := req.Args[1]
	d, nodes, size, err := s.registry.FindFileDSS(filename)
	if err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.reply(addr, wire.SuccessPayload(wire.EncodeReadDescriptor(size, DSSDescriptor(d, nodes))))
	RequestsTotal.WithLabelValues(verb, "success").Inc()
}

func (s *Server) handleDiskFailure(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbDiskFailure
	if len(req.Args) != 1 {
		s.failf(addr, verb, "usage: disk-failure <dssname>")
		return
	}
	d, nodes, files, err := s.registry.DiskFailure(req.Args[0])
	if err != nil {
		s.failf(addr, verb, err.Error())
		return
	}
	s.reply(addr, wire.SuccessPayload(wire.EncodeDiskFailureDescriptor(DSSDescriptor(d, nodes), files)))
	RequestsTotal.WithLabelValues(verb, "success").Inc()
}

func (s *Server) handleDecommissionDSS(req wire.ManagerRequest, addr *net.UDPAddr) {
	const verb = wire.VerbDecommissionDSS
	if len(req.Args) != 1 {
		s.failf(addr, verb, "usage: decommission-dss <name>")
		return
	}
	dssName := req.Args[0]
	txID := uuid.NewString()
	d, nodes, err := s.registry.BeginDecommission(dssName, txID, addr.IP.String())
	if err != nil {
		s.failf(addr, verb, err.Error())
		return
	}

	desc := DSSDescriptor(d, nodes)
	desc.TxID = txID
	s.reply(addr, wire.SuccessPayload(wire.EncodeDSSDescriptor(desc)))
	RequestsTotal.WithLabelValues(verb, "success").Inc()

	s.awaitPhaseTwo(verb, addr, func(followUp wire.ManagerRequest, followAddr *net.UDPAddr) {
		if followUp.Verb != wire.VerbDecommissionDone || len(followUp.Args) != 1 {
			s.registry.AbortDecommission(dssName)
			s.failf(followAddr, wire.VerbDecommissionDone, "expected decommission-complete <txid>")
			return
		}
		if err := s.registry.CommitDecommission(dssName, followUp.Args[0], followAddr.IP.String()); err != nil {
			s.registry.AbortDecommission(dssName)
			s.failf(followAddr, wire.VerbDecommissionDone, err.Error())
			return
		}
		s.succeed(followAddr, wire.VerbDecommissionDone)
	}, func() {
		s.registry.AbortDecommission(dssName)
	})
}

// awaitPhaseTwo blocks the manager's loop for the phase-2 follow-up, per
// spec.md §5: "the manager blocks on the follow-up datagram immediately
// after the phase-1 reply; it does not interleave other requests during
// that window." A timeout aborts the pending transaction via onTimeout so
// the DSS never carries a permanently-stuck pending slot.
func (s *Server) awaitPhaseTwo(verb string, phase1Addr *net.UDPAddr, onFollowUp func(wire.ManagerRequest, *net.UDPAddr), onTimeout func()) {
	data, followAddr, err := s.conn.ReadFromTimeout(netutil.ControlBufferSize, phaseTwoTimeout)
	if err != nil {
		s.log.Warn().Str("verb", verb).Str("from", phase1Addr.String()).
			Msg("phase-2 follow-up never arrived")
		TwoPhaseTimeoutsTotal.WithLabelValues(verb).Inc()
		onTimeout()
		return
	}
	onFollowUp(wire.ParseManagerRequest(data), followAddr)
}

func (s *Server) succeed(addr *net.UDPAddr, verb string) {
	s.reply(addr, wire.Success())
	RequestsTotal.WithLabelValues(verb, "success").Inc()
}

func (s *Server) failf(addr *net.UDPAddr, verb, reason string) {
	s.reply(addr, wire.Failure(reason))
	RequestsTotal.WithLabelValues(verb, "failure").Inc()
}
