package storagenode

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dreamware/dssraid/internal/netutil"
)

// ManagementEndpoint is the textual administrative port every registered
// node and user carries (spec.md §3 user/node records both list a
// management port). The wire grammar it speaks is explicitly out of core
// (spec.md §4.1: "receives textual administrative commands from the
// operator/manager. Out of core."), so this just accepts and logs
// datagrams it doesn't otherwise act on.
type ManagementEndpoint struct {
	conn *netutil.ListenerConn
	log  zerolog.Logger
}

// NewManagementEndpoint wraps a bound management-port listener.
func NewManagementEndpoint(conn *netutil.ListenerConn, log zerolog.Logger) *ManagementEndpoint {
	return &ManagementEndpoint{conn: conn, log: log}
}

// Serve drains the management socket until ctx is cancelled.
func (m *ManagementEndpoint) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			m.conn.Close()
		case <-stop:
		}
	}()

	for {
		data, addr, err := m.conn.ReadFrom(netutil.ControlBufferSize)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		m.log.Info().Str("from", addr.String()).Str("command", string(data)).
			Msg("management command received")
	}
}
