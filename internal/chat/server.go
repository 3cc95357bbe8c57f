package chat

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const outBuffer = 32

type Server struct {
	addr        string
	metricsAddr string
	logger      *slog.Logger
	reg         *Registry
	listener    net.Listener
	metricsSrv  *http.Server
}

// NewServer wires a registry to a chat listen address. metricsAddr may be
// empty, in which case no metrics endpoint is served.
func NewServer(addr, metricsAddr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:        addr,
		metricsAddr: metricsAddr,
		logger:      logger,
		reg:         NewRegistry(128, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.reg.Run()
	go s.acceptLoop(ln)

	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsSrv = &http.Server{Addr: s.metricsAddr, Handler: mux}
		go func() {
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// Losing metrics is not fatal to the chat service.
				s.logger.Warn("metrics server stopped", "error", err)
			}
		}()
		s.logger.Info("metrics endpoint started", "addr", s.metricsAddr)
	}

	s.logger.Info("server started", "addr", s.addr)
	return nil
}

// Addr reports the bound chat listen address, useful when addr was ":0".
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	if s.metricsSrv != nil {
		s.metricsSrv.Close()
	}

	s.reg.Stop()
	s.reg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept fails once the listener is closed; normal shutdown path.
			return
		}

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String())

		c := &Client{
			Conn: conn,
			Out:  make(chan string, outBuffer),
		}
		go HandleSession(c, s.reg.Events())
	}
}
