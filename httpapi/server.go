package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/eventbus"
	"pkt.systems/tabforge/internal/logx"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
)

// Downloads serves the exports a session saved earlier.
type Downloads interface {
	OpenSession(session schema.SessionID, name string) (io.ReadSeekCloser, error)
}

// Server serves the HTTP API and UI.
type Server struct {
	cfg       Config
	analyzer  analysis.Analyzer
	bus       *eventbus.Bus
	hub       *Hub
	downloads Downloads
	sessions  *sessionStore
	assets    fs.FS
	index     indexPage
	janitor   sync.Once
}

// NewServer constructs an HTTP server. Each browser session gets a workspace
// from workspaces; bus carries the store events of those workspaces.
func NewServer(cfg Config, analyzer analysis.Analyzer, workspaces WorkspaceFactory, bus *eventbus.Bus, hub *Hub, downloads Downloads) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		cfg.SessionCookie = "tabforge_session"
	}
	if hub == nil {
		hub = NewHub(0)
	}
	srv := &Server{
		cfg:       cfg,
		analyzer:  analyzer,
		bus:       bus,
		hub:       hub,
		downloads: downloads,
		sessions:  newSessionStore(ttl, workspaces),
	}
	srv.assets = staticAssets()
	srv.index = newIndexPage(srv.assets, cfg.baseHref(), cfg.maxUploadMB())
	return srv
}

// SetBaseContext sets the parent context for session lifetimes and starts
// expiring idle sessions.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.sessions.setBaseContext(ctx)
	s.janitor.Do(func() {
		go s.sessions.janitor(ctx, time.Minute)
	})
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.index)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(s.assets))))

	mux.HandleFunc("/api/analyze-image", s.handleAnalyzeImage)
	mux.HandleFunc("/api/state", s.withSession(s.handleState))
	mux.HandleFunc("/api/interactions", s.withSession(s.handleInteractions))
	mux.HandleFunc("/api/fields/value", s.withSession(s.handleFieldValue))
	mux.HandleFunc("/api/fields/reorder", s.withSession(s.handleReorder))
	mux.HandleFunc("/api/fields/move", s.withSession(s.handleMove))
	mux.HandleFunc("/api/tabs/select", s.withSession(s.handleSelectTab))
	mux.HandleFunc("/api/tabs/from-headers", s.withSession(s.handleTabsFromHeaders))
	mux.HandleFunc("/api/gesture/start", s.withSession(s.handleGesture(schema.ActionStart)))
	mux.HandleFunc("/api/gesture/over", s.withSession(s.handleGesture(schema.ActionOver)))
	mux.HandleFunc("/api/gesture/end", s.withSession(s.handleGesture(schema.ActionEnd)))
	mux.HandleFunc("/api/save", s.withSession(s.handleSave))
	mux.HandleFunc("/api/load", s.withSession(s.handleLoad))
	mux.HandleFunc("/api/exports/", s.withSession(s.handleExport))
	mux.HandleFunc("/api/ws", s.withSession(s.handleWS))

	handler := withRequestLogging(mux, s.lookupSession)
	prefix := s.cfg.mountPath()
	if prefix == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	log.Info("http analyze request")
	if !s.analysisConfigured() {
		s.writeAnalysisError(w, log, schema.ErrMissingAPIKey)
		return
	}

	limit := s.cfg.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeUploadTooLarge(w, log)
			return
		}
		log.Warn("http analyze form failed", "err", err)
		s.writeAnalysisError(w, log, schema.ErrNoImage)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeAnalysisError(w, log, schema.ErrNoImage)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		log.Warn("http analyze read failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if int64(len(data)) > limit {
		s.writeUploadTooLarge(w, log)
		return
	}
	log = log.With("file", header.Filename, "bytes", len(data))
	resp, err := s.analyzer.AnalyzeImage(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeAnalysisError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http analyze ok", "headers", len(resp.TabHeaders))
}

func (s *Server) analysisConfigured() bool {
	if s.analyzer == nil {
		return false
	}
	if c, ok := s.analyzer.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, log pslog.Logger, err error) {
	status := analysis.HTTPStatus(err)
	log.Warn("http analyze failed", "status", status, "err", err)
	writeJSON(w, status, analysis.ErrorBody(err))
}

func (s *Server) writeUploadTooLarge(w http.ResponseWriter, log pslog.Logger) {
	log.Warn("http analyze rejected", "reason", "too large")
	writeJSON(w, http.StatusRequestEntityTooLarge, schema.ErrorResponse{
		Error: fmt.Sprintf("Image exceeds %d MB limit", s.cfg.maxUploadBytes()>>20),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, sess.ws.Mapper.UIState())
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, sess.ws.Mapper.Interactions())
}

func (s *Server) handleFieldValue(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	var payload schema.SetFieldValueRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http field value decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.FieldID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: fieldId is required", schema.ErrInvalidRequest))
		return
	}
	sess.ws.Store.SetFieldValue(payload.FieldID, payload.Value)
	s.respondState(w, sess)
	logx.WithField(log, payload.FieldID).Debug("http field value ok")
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	var payload schema.ReorderFieldsRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http reorder decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.TabID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: tabId is required", schema.ErrInvalidRequest))
		return
	}
	sess.ws.Store.ReorderFields(payload.TabID, payload.OldIndex, payload.NewIndex)
	s.respondState(w, sess)
	log.Debug("http reorder ok", "tab", payload.TabID, "from_index", payload.OldIndex, "to_index", payload.NewIndex)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	var payload schema.MoveFieldRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http move decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.FieldID == "" || payload.FromTabID == "" || payload.ToTabID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: fieldId, fromTabId and toTabId are required", schema.ErrInvalidRequest))
		return
	}
	sess.ws.Store.MoveField(payload.FieldID, payload.FromTabID, payload.ToTabID, payload.NewIndex)
	s.respondState(w, sess)
	logx.WithField(log, payload.FieldID).Debug("http move ok", "from_tab", payload.FromTabID, "to_tab", payload.ToTabID)
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	var payload schema.SelectTabRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http select tab decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess.ws.Mapper.SelectTab(payload.TabID)
	s.respondState(w, sess)
	log.Debug("http select tab ok", "tab", payload.TabID)
}

func (s *Server) handleTabsFromHeaders(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	var payload schema.CreateTabsRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http tabs decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	added := sess.ws.Store.CreateTabsFromHeaders(payload.Headers)
	if added == nil {
		added = []schema.TabID{}
	}
	s.publishState(sess)
	writeJSON(w, http.StatusOK, schema.CreateTabsResponse{Added: added})
	log.Info("http tabs from headers ok", "headers", len(payload.Headers), "added", len(added))
}

func (s *Server) handleGesture(action schema.InteractionAction) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, sess *session) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		log := logx.WithSession(r.Context(), sess.id)
		var payload schema.GestureRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			log.Warn("http gesture decode failed", "action", action, "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if payload.ItemID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: itemId is required", schema.ErrInvalidRequest))
			return
		}
		mapper := sess.ws.Mapper
		switch action {
		case schema.ActionStart:
			mapper.Start(payload.ItemID)
		case schema.ActionOver:
			mapper.Over(payload.ItemID, payload.TargetID)
		case schema.ActionEnd:
			mapper.End(payload.ItemID, payload.TargetID)
		}
		s.respondState(w, sess)
		logx.WithField(log, payload.ItemID).Trace("http gesture ok", "action", action, "target", payload.TargetID)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	result, err := sess.ws.Store.SaveData(r.Context())
	s.publishState(sess)
	if err != nil {
		log.Warn("http save failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, schema.ErrorResponse{Error: "Failed to save data", Details: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(result.DownloadName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Download)
	log.Info("http save ok", "file", result.DownloadName)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithSession(r.Context(), sess.id)
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.maxUploadBytes()))
	if err != nil {
		log.Warn("http load read failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := persist.ValidateSnapshot(data)
	if err != nil {
		log.Warn("http load rejected", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := sess.ws.Store.Load(snap); err != nil {
		log.Warn("http load rejected", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.respondState(w, sess)
	log.Info("http load ok", "tabs", len(snap.Tabs))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/exports/")
	if s.downloads == nil || name == "" {
		http.NotFound(w, r)
		return
	}
	file, err := s.downloads.OpenSession(sess.id, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, persist.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(name))
	http.ServeContent(w, r, name, time.Time{}, file)
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// respondState replies with the session's UI state and pushes it to the
// session's websocket subscribers.
func (s *Server) respondState(w http.ResponseWriter, sess *session) {
	state := sess.ws.Mapper.UIState()
	s.hub.PublishState(sess.id, state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) publishState(sess *session) {
	if s.hub.Subscribers(sess.id) == 0 {
		return
	}
	s.hub.PublishState(sess.id, sess.ws.Mapper.UIState())
}

func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *session
		if token := s.sessionToken(r); token != "" {
			sess, _ = s.sessions.get(token)
		}
		if sess == nil {
			var token string
			token, sess = s.sessions.create()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  sess.expiresAt,
			})
		}
		log := logx.Ctx(r.Context()).With("remote", clientIP(r), "session", sess.id)
		ctx := logx.ContextWithSessionLogger(r.Context(), log, sess.id)
		next(w, r.WithContext(ctx), sess)
	}
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) lookupSession(r *http.Request) schema.SessionID {
	if s == nil || r == nil {
		return ""
	}
	token := s.sessionToken(r)
	if token == "" {
		return ""
	}
	entry, ok := s.sessions.get(token)
	if !ok {
		return ""
	}
	return entry.id
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
