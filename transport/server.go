package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/CMihai998/wg-dynamic/protocol"
)

var (
	connsAccepted      = metrics.NewCounter("wg_dynamic_connections_accepted_total")
	connsClosed        = metrics.NewCounter("wg_dynamic_connections_closed_total")
	msgsCompleted      = metrics.NewCounter("wg_dynamic_messages_completed_total")
	responsesPostponed = metrics.NewCounter("wg_dynamic_responses_postponed_total")
)

func parseErrorCounter(err error) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(
		"wg_dynamic_parse_errors_total{code=%q}", protocol.ErrorName(err)))
}

// Server accepts connections and drives each one through the
// non-blocking read/write cycle from a single epoll event loop. The
// outer readiness multiplexing, connection registry and teardown live
// here; the per-connection protocol work lives on Conn.
type Server struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr    string
	handler Handler

	listener   net.Listener
	listenFile *os.File
	listenFd   int

	poller *Poller

	mu    sync.Mutex
	conns map[int]*Conn

	log *zap.Logger
}

func NewServer(options Options) *Server {
	return &Server{
		addr:    net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		handler: options.Handler,
		conns:   make(map[int]*Conn),
		log:     options.Log,
	}
}

// Start binds the listening socket and spawns the event loop. It
// returns once the server is accepting connections.
func (s *Server) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	listener, err := reuseport.Listen("tcp", s.addr)
	if err != nil {
		cancel()
		return err
	}

	// Pull the raw fd out so the epoll loop can own readiness. File()
	// dups the descriptor and puts it in blocking mode, so flip it back.
	file, err := listener.(*net.TCPListener).File()
	if err != nil {
		listener.Close()
		cancel()
		return err
	}

	if err := unix.SetNonblock(int(file.Fd()), true); err != nil {
		file.Close()
		listener.Close()
		cancel()
		return err
	}

	poller, err := NewPoller()
	if err != nil {
		file.Close()
		listener.Close()
		cancel()
		return err
	}

	if err := poller.Add(int(file.Fd()), unix.EPOLLIN); err != nil {
		poller.Close()
		file.Close()
		listener.Close()
		cancel()
		return err
	}

	s.listener = listener
	s.listenFile = file
	s.listenFd = int(file.Fd())
	s.poller = poller

	s.log.Info("Listening", zap.String("addr", s.addr))

	s.stopWaiter.Add(1)
	go s.loop(ctx)

	go func() {
		<-ctx.Done()

		if err := s.poller.Wake(); err != nil {
			s.log.Warn("Failed to wake event loop", zap.Error(err))
		}
	}()

	return nil
}

// Close stops the event loop, tears down every connection and releases
// the listener and poller.
func (s *Server) Close() (err error) {
	s.log.Info("Stopping server")
	s.cancel()
	s.stopWaiter.Wait()

	s.mu.Lock()
	for fd, conn := range s.conns {
		err = multierr.Append(err, conn.Close())
		delete(s.conns, fd)
	}
	s.mu.Unlock()

	err = multierr.Append(err, s.poller.Close())
	err = multierr.Append(err, s.listenFile.Close())
	err = multierr.Append(err, s.listener.Close())

	return err
}

func (s *Server) loop(ctx context.Context) {
	defer s.stopWaiter.Done()

	events := make([]unix.EpollEvent, 128)

	for {
		n, err := s.poller.Wait(events, -1)
		if err != nil {
			s.log.Error("Poll failed, event loop exiting", zap.Error(err))
			return
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)

			switch {
			case s.poller.IsWake(fd):
				s.poller.drainWake()

			case fd == s.listenFd:
				s.acceptReady()

			default:
				s.connReady(fd, events[i].Events)
			}
		}

		if ctx.Err() != nil {
			s.log.Info("Event loop stopped")
			return
		}
	}
}

// acceptReady drains the accept backlog without blocking.
func (s *Server) acceptReady() {
	for {
		fd, sa, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == unix.EAGAIN:
			return

		case err == unix.EINTR:
			continue

		case err != nil:
			s.log.Warn("Accept failed", zap.Error(err))
			return
		}

		peer := sockaddrString(sa)
		conn := newConn(fd, peer, s.log.Named("conn"))

		if err := s.poller.Add(fd, unix.EPOLLIN); err != nil {
			s.log.Warn("Failed to register connection", zap.String("peer", peer), zap.Error(err))
			conn.Close()
			continue
		}

		s.addConn(conn)
		connsAccepted.Inc()

		s.log.Debug("Accepted connection", zap.String("peer", peer))
	}
}

func (s *Server) connReady(fd int, events uint32) {
	conn := s.lookupConn(fd)
	if conn == nil {
		return
	}

	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		s.closeConn(conn)
		return
	}

	if events&unix.EPOLLOUT != 0 {
		switch conn.FlushPending() {
		case SendFailed:
			s.closeConn(conn)
			return

		case SendFlushed:
			if conn.closeAfterFlush {
				s.closeConn(conn)
				return
			}

			if err := s.poller.Mod(fd, unix.EPOLLIN); err != nil {
				s.log.Warn("Failed to rearm connection", zap.Error(err))
				s.closeConn(conn)
				return
			}

		case SendPending:
			// Still blocked, keep waiting for writability.
		}
	}

	if events&unix.EPOLLIN != 0 {
		if conn.Pump(s.onComplete, s.onError) {
			s.closeConn(conn)
		}
	}
}

// onComplete hands a finished message to the handler and arranges for
// any partially flushed response to drain before the connection goes
// away.
func (s *Server) onComplete(conn *Conn) bool {
	msgsCompleted.Inc()

	finished := s.handler.HandleComplete(conn)

	return s.settle(conn, finished)
}

func (s *Server) onError(conn *Conn, err error) bool {
	parseErrorCounter(err).Inc()

	s.log.Debug("Request failed to parse",
		zap.String("peer", conn.Peer()),
		zap.Error(err))

	finished := s.handler.HandleError(conn, err)

	return s.settle(conn, finished)
}

func (s *Server) settle(conn *Conn, finished bool) bool {
	if !conn.HasPending() {
		return finished
	}

	responsesPostponed.Inc()
	conn.closeAfterFlush = finished

	if err := s.poller.Mod(conn.fd, unix.EPOLLIN|unix.EPOLLOUT); err != nil {
		s.log.Warn("Failed to arm connection for write", zap.Error(err))
		return true
	}

	return false
}

func (s *Server) addConn(conn *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[conn.fd] = conn
}

func (s *Server) lookupConn(fd int) *Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conns[fd]
}

func (s *Server) closeConn(conn *Conn) {
	s.mu.Lock()
	delete(s.conns, conn.fd)
	s.mu.Unlock()

	if err := s.poller.Del(conn.fd); err != nil {
		s.log.Debug("Failed to deregister connection", zap.Error(err))
	}

	if err := conn.Close(); err != nil {
		s.log.Debug("Failed to close connection cleanly", zap.Error(err))
	}

	connsClosed.Inc()
}

func sockaddrString(sa unix.Sockaddr) string {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	default:
		return "unknown"
	}
}
