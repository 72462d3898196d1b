package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/discovery"
	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/version"
	"github.com/muurk/zoothing/internal/zoo"
)

const shutdownTimeout = 2 * time.Second

// Config holds the portal settings
type Config struct {
	Listen string // Listen address (e.g. ":80")
	Events bool   // Serve the /events status stream
	MDNS   bool   // Advertise the portal over mDNS while bound
}

// Server is a bound configuration portal.
type Server struct {
	ln   net.Listener
	http *http.Server
	ad   *discovery.Advertisement
	done chan struct{}

	closeOnce sync.Once
	serveErr  chan error
}

// Listen binds the portal and starts serving in the background. A nil events
// source disables /events regardless of cfg.Events.
func Listen(cfg Config, backend Backend, events StatusSource) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to bind portal on %s: %w", cfg.Listen, err)
	}

	if !cfg.Events {
		events = nil
	}

	s := &Server{
		ln:       ln,
		done:     make(chan struct{}),
		serveErr: make(chan error, 1),
	}
	s.http = &http.Server{
		Handler:           NewHandler(backend, events, s.done),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := s.http.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Portal stopped serving", zap.Error(err))
		}
		s.serveErr <- err
	}()

	logging.Info("Configuration portal listening", zap.String("addr", s.Addr()))

	if cfg.MDNS {
		port := 0
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
		name := backend.Identity().Name
		ad, err := discovery.Advertise(name, port, version.Version)
		if err != nil {
			logging.Warn("Portal not advertised over mDNS", zap.Error(err))
		} else {
			s.ad = ad
			logging.Debug("Portal advertised over mDNS", zap.String("instance", name), zap.Int("port", port))
		}
	}

	return s, nil
}

// Opener returns a zoo.PortalOpener that binds a portal for the machine.
func Opener(cfg Config) zoo.PortalOpener {
	return func(m *zoo.Machine) (zoo.Listener, error) {
		return Listen(cfg, m, m)
	}
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close withdraws the advertisement, ends open event streams and shuts the
// listener down. Close is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.ad.Shutdown()
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("failed to shut down portal: %w", shutdownErr)
			_ = s.http.Close()
		}
		<-s.serveErr
		logging.Info("Configuration portal closed", zap.String("addr", s.Addr()))
	})
	return err
}
