package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"crusher/internal/inbox"
	"crusher/internal/model"
	"crusher/internal/people"
)

//go:embed index.html
var indexHTML string

// Inbox is the engine surface the HTTP layer consumes.
type Inbox interface {
	Assemble(ctx context.Context) ([]*model.Conversation, error)
	ResolveIdentity(identifier string) (string, bool)
	Send(ctx context.Context, identifier, text string, isGroup bool) error
	MarkRead(identifier string) (int64, error)
}

// Server exposes the triage UI and API over HTTP.
type Server struct {
	inbox          Inbox
	people         *people.Store
	attachmentsDir string
	gridWidth      int
	sess           *session

	sendMu  sync.Mutex
	sending bool
}

// New builds a Server. attachmentsDir confines which files /attachment/ may
// serve.
func New(ib Inbox, ppl *people.Store, attachmentsDir string, gridWidth int) *Server {
	if gridWidth <= 0 {
		gridWidth = inbox.DefaultGridWidth
	}
	return &Server{
		inbox:          ib,
		people:         ppl,
		attachmentsDir: filepath.Clean(attachmentsDir),
		gridWidth:      gridWidth,
		sess:           newSession(),
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(indexHTML))
	})
	r.Get("/attachment/*", s.handleAttachment)

	r.Route("/api", func(r chi.Router) {
		r.Get("/conversations", s.handleConversations)
		r.Get("/stats", s.handleStats)
		r.Post("/draft", s.handleDraft)
		r.Post("/commit", s.handleCommit)
		r.Post("/later", s.handleLater)
		r.Post("/ignore", s.handleIgnore)
		r.Post("/send-all", s.handleSendAll)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// ListenAndServe runs the server on the given port until the listener fails.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	slog.Info("serving inbox", "addr", "http://"+addr)
	return http.ListenAndServe(addr, s.Router())
}

// requestLogger attaches a request-scoped logger and records timing.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default().With(
			"request_id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
		)
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request served", "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.inbox.Assemble(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	drafts, committed, later := s.sess.snapshot()
	view := inboxView{
		Conversations: make([]conversationView, 0, len(convs)),
		GridCols:      inbox.GridColumns(len(convs), s.gridWidth),
		Total:         len(convs),
		Ready:         len(committed),
	}
	laterCount := 0
	for _, conv := range convs {
		if later[conv.ChatID] {
			laterCount++
		}
		view.Conversations = append(view.Conversations, s.conversationView(conv, drafts, committed, later))
	}
	view.Remaining = view.Total - laterCount
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	convs, err := s.inbox.Assemble(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	drafts, committed, later := s.sess.snapshot()
	laterCount := 0
	for _, conv := range convs {
		if later[conv.ChatID] {
			laterCount++
		}
	}
	writeJSON(w, http.StatusOK, statsView{
		Total:     len(convs),
		Remaining: len(convs) - laterCount,
		Ready:     len(committed),
		Later:     laterCount,
		Drafts:    len(drafts),
	})
}

type draftRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	s.sess.setDraft(req.ChatID, text)
	state := "draft"
	if text == "" {
		state = "empty"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": state})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no text provided"))
		return
	}
	s.sess.commit(req.ChatID, text)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": "committed"})
}

func (s *Server) handleLater(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	isLater := s.sess.toggleLater(req.ChatID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "is_later": isLater})
}

type ignoreRequest struct {
	ChatIdentifier string `json:"chat_identifier"`
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ignored := !s.people.Ignored(req.ChatIdentifier)
	if err := s.people.SetIgnored(req.ChatIdentifier, ignored); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "is_ignored": ignored})
}

type sendResult struct {
	ChatID  int64  `json:"chat_id"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleSendAll delivers every committed message. A second send-all while
// one is running is skipped outright; per-chat serialization is handled
// further down by the engine.
func (s *Server) handleSendAll(w http.ResponseWriter, r *http.Request) {
	s.sendMu.Lock()
	if s.sending {
		s.sendMu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "skipped": true, "results": []sendResult{}})
		return
	}
	s.sending = true
	s.sendMu.Unlock()
	defer func() {
		s.sendMu.Lock()
		s.sending = false
		s.sendMu.Unlock()
	}()

	toSend := s.sess.takeCommitted()
	if len(toSend) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "results": []sendResult{}})
		return
	}

	convs, err := s.inbox.Assemble(r.Context())
	if err != nil {
		for chatID, text := range toSend {
			s.sess.restoreCommitted(chatID, text)
		}
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	byID := make(map[int64]*model.Conversation, len(convs))
	for _, conv := range convs {
		byID[conv.ChatID] = conv
	}

	results := make([]sendResult, 0, len(toSend))
	for chatID, text := range toSend {
		conv, ok := byID[chatID]
		if !ok {
			continue
		}
		res := sendResult{ChatID: chatID, Name: conv.Name(s.inbox.ResolveIdentity)}
		if err := s.inbox.Send(r.Context(), conv.ChatIdentifier, text, conv.IsGroup()); err != nil {
			res.Error = err.Error()
			s.sess.restoreCommitted(chatID, text)
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "results": results})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	convs, err := s.inbox.Assemble(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	current := make(map[int64]bool, len(convs))
	for _, conv := range convs {
		current[conv.ChatID] = true
	}
	s.sess.prune(current)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAttachment serves a file strictly from inside the attachments root.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	full := filepath.Join(s.attachmentsDir, filepath.FromSlash(rel))
	full = filepath.Clean(full)
	if full != s.attachmentsDir && !strings.HasPrefix(full, s.attachmentsDir+string(filepath.Separator)) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if _, err := os.Stat(full); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}
