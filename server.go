package tabforge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/httpapi"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/eventbus"
	"pkt.systems/tabforge/schema"
	"pkt.systems/tabforge/sshserver"
)

// Server composes the HTTP and SSH front ends.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP     httpapi.Config
	SSH      sshserver.Config
	HubDepth int
}

// Downloads stores save exports per session and serves them back to the
// session that wrote them.
type Downloads interface {
	WriteSession(ctx context.Context, session schema.SessionID, name string, data []byte) error
	httpapi.Downloads
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	// Analyzer answers image analysis requests, in-process or remote.
	Analyzer analysis.Analyzer
	// Local is the keyed storage saves write to, under keys scoped to the
	// saving session. Closed on Stop when it implements io.Closer.
	Local     core.LocalSink
	Downloads Downloads
	// EventSink receives every store event in addition to the session bus.
	EventSink core.EventSink
	Logger    pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API/UI server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable tabforge server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer dependency is required")
	}

	bus := eventbus.New(deps.Logger)
	sink := fanout(deps.EventSink, bus)
	workspaces := func(sessionID schema.SessionID) *core.Workspace {
		storeDeps := core.StoreDeps{
			Session:   sessionID,
			EventSink: sink,
			Logger:    deps.Logger,
		}
		if deps.Local != nil {
			storeDeps.Local = sessionLocal{local: deps.Local, session: sessionID}
		}
		if deps.Downloads != nil {
			storeDeps.Download = sessionDownloads{downloads: deps.Downloads, session: sessionID}
		}
		return core.NewWorkspace(storeDeps)
	}

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, deps.Analyzer, workspaces, bus, httpapi.NewHub(cfg.HubDepth), deps.Downloads)
	}
	if options.enableSSH {
		sshSrv = &sshserver.Server{
			Addr:        cfg.SSH.Addr,
			HostKeyPath: cfg.SSH.HostKeyPath,
			UploadDir:   cfg.SSH.UploadDir,
			Workspaces:  workspaces,
			Bridge:      analysis.NewBridge(deps.Analyzer, deps.Logger),
			EventBus:    bus,
		}
	}

	var local io.Closer
	if closer, ok := deps.Local.(io.Closer); ok {
		local = closer
	}
	return &compositeServer{
		cfg:     cfg,
		options: options,
		httpSrv: httpSrv,
		sshSrv:  sshSrv,
		local:   local,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	httpSrv *httpapi.Server
	sshSrv  *sshserver.Server
	local   io.Closer
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	closed  bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	listeners, err := s.bind()
	if err != nil {
		cancel()
		s.mu.Unlock()
		pslog.Ctx(ctx).Error("server bind failed", "err", err)
		return err
	}
	s.ctx, s.cancel = runCtx, cancel
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if listeners.http != nil {
		s.httpSrv.SetBaseContext(s.ctx)
		go func() {
			if err := httpapi.Serve(s.ctx, listeners.http, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if listeners.ssh != nil {
		s.sshSrv.Listener = listeners.ssh
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

type boundListeners struct {
	http net.Listener
	ssh  net.Listener
}

// bind opens every enabled listener up front so address conflicts fail Start.
func (s *compositeServer) bind() (boundListeners, error) {
	var out boundListeners
	if s.options.enableHTTP && s.httpSrv != nil {
		ln, err := net.Listen("tcp", s.cfg.HTTP.Addr)
		if err != nil {
			return out, fmt.Errorf("http listen %s: %w", s.cfg.HTTP.Addr, err)
		}
		out.http = ln
	}
	if s.options.enableSSH && s.sshSrv != nil {
		ln, err := net.Listen("tcp", s.cfg.SSH.Addr)
		if err != nil {
			if out.http != nil {
				_ = out.http.Close()
			}
			return out, fmt.Errorf("ssh listen %s: %w", s.cfg.SSH.Addr, err)
		}
		out.ssh = ln
	}
	return out, nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	local := s.local
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if local != nil && !alreadyClosed {
		if err := local.Close(); err != nil {
			log.Warn("server local store close failed", "err", err)
		} else {
			log.Info("server local store closed")
		}
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
