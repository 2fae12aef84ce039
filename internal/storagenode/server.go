package storagenode

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// Server is the storage node's peer endpoint: the one socket the client's
// striping engine talks to directly for WRITE, READ, FAIL, and DELETE
// (spec.md §4.1). A single goroutine drains it sequentially — there is no
// per-request goroutine — so every Store operation it triggers is
// effectively linearizable per node without any extra locking discipline
// at this layer (spec.md §5).
//
// Request lifecycle:
//  1. ReadFrom blocks for the next datagram on conn
//  2. handle dispatches on wire.PeerVerb(data) to handleWrite, handleRead,
//     handleFail, or handleDelete
//  3. handleRead and handleFail write a reply back to the sender; handleWrite
//     and handleDelete are fire-and-forget, matching the base protocol's
//     "no reply" contract for those two verbs
//
// Concurrency Model:
//   - Exactly one goroutine drives Serve's loop; Store is never accessed
//     by two goroutines from this type at once.
//   - A second goroutine (started by Serve) watches ctx and closes conn on
//     cancellation, which unblocks the blocked ReadFrom and ends the loop.
//
// Thread Safety:
// Server is not safe for concurrent Serve calls from multiple goroutines;
// exactly one is expected to run for the lifetime of the daemon.
type Server struct {
	store *Store
	conn  *netutil.ListenerConn
	log   zerolog.Logger
}

// NewServer wraps a bound listener socket and a Store into a peer
// endpoint ready to Serve.
//
// Parameters:
//   - conn: a UDP socket already bound via netutil.Listen
//   - store: the block store this endpoint's requests will read and mutate
//   - log: the component logger for per-request diagnostics
//
// Returns:
//   - a Server ready for Serve to be called once
//
// Example:
//
//	conn, _ := netutil.Listen(13150)
//	srv := storagenode.NewServer(conn, storagenode.NewStore(), log)
//	go srv.Serve(ctx)
func NewServer(conn *netutil.ListenerConn, store *Store, log zerolog.Logger) *Server {
	return &Server{store: store, conn: conn, log: log}
}

// Store exposes the node's block store, e.g. for a management endpoint to
// report stats.
func (s *Server) Store() *Store { return s.store }

// Serve drains the peer socket until ctx is cancelled or the socket errors.
// It processes one datagram at a time — no per-request goroutine — so the
// Store operations it triggers run in arrival order.
func (s *Server) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stop:
		}
	}()

	for {
		data, addr, err := s.conn.ReadFrom(netutil.MaxDatagram)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		s.handle(data, addr)
	}
}

func (s *Server) handle(data []byte, addr *net.UDPAddr) {
	verb := wire.PeerVerb(data)
	switch verb {
	case wire.VerbWrite:
		s.handleWrite(data)
	case wire.VerbRead:
		s.handleRead(data, addr)
	case wire.VerbFail:
		s.handleFail(addr)
	case wire.VerbDelete:
		s.handleDelete(data)
	default:
		s.log.Warn().Str("verb", verb).Msg("unknown peer verb")
	}
}

func (s *Server) handleWrite(data []byte) {
	file, stripe, role, payload, err := wire.DecodeWrite(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed WRITE")
		return
	}
	s.store.Write(file, stripe, role, payload)
	s.log.Debug().Str("file", file).Int("stripe", stripe).Str("role", string(role)).
		Int("bytes", len(payload)).Msg("stored block")
}

func (s *Server) handleRead(data []byte, addr *net.UDPAddr) {
	file, stripe, drive, err := wire.DecodeRead(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed READ")
		return
	}

	block, ok := s.store.Read(file, stripe)
	var reply []byte
	if ok {
		reply = block.Data
	} else {
		reply = []byte(wire.ReplyBlockNotFound)
	}

	if err := s.conn.WriteTo(reply, addr); err != nil {
		s.log.Warn().Err(err).Msg("failed to send READ reply")
		return
	}
	s.log.Debug().Str("file", file).Int("stripe", stripe).Int("drive", drive).
		Bool("found", ok).Msg("served read")
}

func (s *Server) handleFail(addr *net.UDPAddr) {
	s.store.Fail()
	if err := s.conn.WriteTo([]byte(wire.ReplyFailComplete), addr); err != nil {
		s.log.Warn().Err(err).Msg("failed to send fail-complete")
		return
	}
	s.log.Info().Msg("simulated disk failure: store cleared")
}

func (s *Server) handleDelete(data []byte) {
	dssName, err := wire.DecodeDelete(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed DELETE")
		return
	}
	s.store.DeleteDSS(dssName)
	s.log.Info().Str("dss", dssName).Msg("deleted local files for decommissioned DSS")
}
