package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gliderssh "github.com/gliderlabs/ssh"
	"github.com/muesli/termenv"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/eventbus"
	"pkt.systems/tabforge/internal/logx"
	"pkt.systems/tabforge/schema"
	"pkt.systems/tabforge/tui"
)

// WorkspaceFactory builds the workspace for a new SSH session.
type WorkspaceFactory func(schema.SessionID) *core.Workspace

// Server exposes the terminal front end over SSH. Every session gets its own
// workspace.
type Server struct {
	Addr        string
	HostKeyPath string
	UploadDir   string
	Listener    net.Listener
	Workspaces  WorkspaceFactory
	Bridge      *analysis.Bridge
	EventBus    *eventbus.Bus
	logger      pslog.Logger
}

var errUploadsDisabled = errors.New("image uploads are not enabled for ssh sessions")

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}

	hostKey, err := LoadOrCreateHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	s.logger.Info("ssh host key", "fingerprint", hostKey.Fingerprint, "created", hostKey.Created)

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	server.AddHostKey(hostKey.Signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			s.logger.Info("ssh server listening", "addr", s.Listener.Addr().String())
			errCh <- server.Serve(s.Listener)
			return
		}
		s.logger.Info("ssh server listening", "addr", s.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := remoteAddr(sess.Context())
	sessionID := schema.SessionID("ssh-" + shortID(sess.Context().SessionID()))
	log = log.With("user", sess.User(), "remote", remote, "session", sessionID)
	ctx := logx.ContextWithSessionLogger(sess.Context(), log, sessionID)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	ws := s.workspace(sessionID)
	var events <-chan schema.StoreEvent
	if s.EventBus != nil {
		var unsubscribe func()
		events, unsubscribe = s.EventBus.Subscribe(sessionID)
		defer unsubscribe()
	}

	output := termenv.NewOutput(sess, termenv.WithProfile(termenv.ANSI256))
	model := tui.New(tui.Options{
		Context:   ctx,
		Workspace: ws,
		Bridge:    s.Bridge,
		Events:    events,
		Renderer:  lipgloss.NewRenderer(sess, termenv.WithProfile(termenv.ANSI256)),
		Clipboard: func(text string) error {
			output.Copy(text)
			return nil
		},
		ReadFile: s.readUpload,
		Logger:   log,
	})

	program := tea.NewProgram(model,
		tea.WithInput(sess),
		tea.WithOutput(sess),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case win, ok := <-winCh:
				if !ok {
					return
				}
				program.Send(tea.WindowSizeMsg{Width: win.Width, Height: win.Height})
			}
		}
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Warn("ssh session failed", "err", err)
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session closed", "term", pty.Term)
	_ = sess.Exit(0)
}

func (s *Server) workspace(sessionID schema.SessionID) *core.Workspace {
	if s.Workspaces != nil {
		return s.Workspaces(sessionID)
	}
	deps := core.StoreDeps{Session: sessionID}
	if s.EventBus != nil {
		deps.EventSink = s.EventBus
	}
	return core.NewWorkspace(deps)
}

// readUpload reads an image relative to the upload directory. Paths that
// escape the directory are rejected.
func (s *Server) readUpload(path string) ([]byte, error) {
	if s.UploadDir == "" {
		return nil, errUploadsDisabled
	}
	root, err := os.OpenRoot(s.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open upload dir: %w", err)
	}
	defer root.Close()
	return root.ReadFile(filepath.Clean(path))
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
