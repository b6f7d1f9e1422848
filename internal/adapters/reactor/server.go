package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/dkeye/Lobbyhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Server accepts TCP connections and serves one session per connection.
type Server struct {
	Orch *orch.Orchestrator
	Ctl  *Controller

	cfg     config.TCP
	limiter *AddressLimiter
	wg      sync.WaitGroup
}

func NewServer(o *orch.Orchestrator, ctl *Controller, cfg config.TCP) *Server {
	return &Server{
		Orch:    o,
		Ctl:     ctl,
		cfg:     cfg,
		limiter: NewAddressLimiter(cfg.AcceptRate, cfg.AcceptBurst),
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", config.ListenAddr(s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop until ctx ends, then waits for every session to close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info().Str("module", "reactor").Str("addr", ln.Addr().String()).Msg("tcp listening")
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				log.Info().Str("module", "reactor").Msg("tcp listener closed")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if addr := hostOf(nc.RemoteAddr()); !s.limiter.Allow(addr) {
			log.Warn().Str("module", "reactor").Str("address", addr).Msg("accept rate exceeded")
			_ = nc.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, nc)
		}()
	}
}

// ServeConn opens a session on nc and processes its commands one at a time
// until the peer goes away or ctx ends.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) {
	conn := newConn(nc, s.cfg.SendQueue)
	sess, err := s.Orch.Sessions.Open(conn)
	if err != nil {
		conn.goodbye(protocol.Failure("", string(domain.KindOf(err)), err.Error()))
		return
	}
	conn.bind(sess.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go conn.writePump(ctx.Done())

	defer func() {
		s.Orch.OnDisconnect(sess.ID)
		conn.Close()
	}()
	s.readPump(ctx, sess.ID, conn)
}

func (s *Server) readPump(ctx context.Context, sid domain.SessionID, conn *Conn) {
	r := protocol.NewReader(conn.nc, s.cfg.CommandBufferSize)
	for {
		line, err := r.ReadLine()
		if errors.Is(err, protocol.ErrLineTooLong) {
			log.Warn().Err(err).Str("module", "reactor").Str("sid", string(sid)).Msg("ingest error")
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				log.Warn().Err(err).Str("module", "reactor").Str("sid", string(sid)).Msg("readPump read error")
			}
			log.Info().Str("module", "reactor").Str("sid", string(sid)).Msg("readPump closing")
			return
		}

		cmd, err := protocol.Decode(line)
		if errors.Is(err, protocol.ErrEmptyFrame) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "reactor").Str("sid", string(sid)).Msg("received invalid command")
			continue
		}
		if cmd.IsResponse() {
			if !conn.resolve(cmd) {
				log.Debug().Str("module", "reactor").Str("sid", string(sid)).Str("exchange", cmd.ID).Msg("response without exchange")
			}
			continue
		}
		s.Ctl.Dispatch(ctx, sid, conn, cmd)
	}
}
