// Package ui serves a small browser page that starts runs and streams their
// progress over server-sent events.
package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/report"
	"nextcloud-stress/internal/workflow"
)

// RunFunc executes one requested run, reporting through r until it returns.
type RunFunc func(ctx context.Context, req RunRequest, r workflow.Reporter)

// Client represents an SSE client connection
type Client struct {
	id      string
	msgChan chan string
	resChan chan report.ReportData
}

type Server struct {
	Port         int
	LogChan      chan string
	ResultChan   chan report.ReportData
	LatestReport []byte
	ReportMu     sync.RWMutex
	ReadyChan    chan struct{} // Signals when server is ready to accept connections

	run        RunFunc
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	runMu      sync.Mutex

	// Client management for broadcasting
	clients    map[string]*Client
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
}

func NewServer(port int, run RunFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		Port:       port,
		LogChan:    make(chan string, config.LogChannelBufferSize),
		ResultChan: make(chan report.ReportData, config.ResultChannelBufferSize),
		ReadyChan:  make(chan struct{}),
		run:        run,
		logger:     logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}

	// Start broadcaster goroutine
	go s.broadcaster()

	return s
}

// broadcaster handles message distribution to all connected clients
func (s *Server) broadcaster() {
	for {
		select {
		case <-s.quit:
			return

		case msg := <-s.LogChan:
			s.clientsMu.RLock()
			for _, client := range s.clients {
				select {
				case client.msgChan <- msg:
				default:
					// slow client
				}
			}
			s.clientsMu.RUnlock()

		case res := <-s.ResultChan:
			s.clientsMu.RLock()
			for _, client := range s.clients {
				select {
				case client.resChan <- res:
				default:
				}
			}
			s.clientsMu.RUnlock()

		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c.id] = c
			n := len(s.clients)
			s.clientsMu.Unlock()
			s.logger.Debug("client connected", "client", c.id, "total", n)

		case c := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[c.id]; ok {
				close(c.msgChan)
				close(c.resChan)
				delete(s.clients, c.id)
			}
			n := len(s.clients)
			s.clientsMu.Unlock()
			s.logger.Debug("client disconnected", "client", c.id, "total", n)
		}
	}
}

// Close stops the broadcaster and cancels a running run.
func (s *Server) Close() {
	s.runMu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.runMu.Unlock()

	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

func (s *Server) Broadcast(msg string) {
	select {
	case s.LogChan <- msg:
	default:
	}
}

func (s *Server) SendResult(data report.ReportData) {
	select {
	case s.ResultChan <- data:
	case <-s.quit:
	}
}

func (s *Server) SaveReport(html []byte) {
	s.ReportMu.Lock()
	defer s.ReportMu.Unlock()
	s.LatestReport = html
}

// Running reports whether a run is in progress.
func (s *Server) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cancelFunc != nil
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &Client{
		id:      uuid.NewString(),
		msgChan: make(chan string, config.ClientChannelBufferSize),
		resChan: make(chan report.ReportData, 1),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		return
	}
	defer func() {
		select {
		case s.unregister <- client:
		case <-s.quit:
		}
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()

	// Heartbeat ticker to keep connection alive
	ticker := time.NewTicker(config.SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.quit:
			return

		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case msg, ok := <-client.msgChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()

		case res, ok := <-client.resChan:
			if !ok {
				return
			}
			b, err := json.Marshal(res)
			if err != nil {
				fmt.Fprintf(w, "data: JSON Marshal Error: %v\n\n", err)
				flusher.Flush()
				continue
			}
			fmt.Fprintf(w, "event: result\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func (s *Server) HandleDownloadReport(w http.ResponseWriter, r *http.Request) {
	s.ReportMu.RLock()
	defer s.ReportMu.RUnlock()
	if len(s.LatestReport) == 0 {
		http.Error(w, "No report available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Content-Disposition", "attachment; filename=Drive_Stress_Report.html")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.LatestReport)))
	if _, err := bytes.NewReader(s.LatestReport).WriteTo(w); err != nil {
		s.logger.Warn("failed to write report download", "error", err)
	}
}

// RunRequest asks for a run against catalog nodes, or against a single
// ad-hoc server when URL is set.
type RunRequest struct {
	Kind  string   `json:"kind"`
	Nodes []string `json:"nodes,omitempty"`
	URL   string   `json:"url,omitempty"`
	User  string   `json:"user,omitempty"`
	Pass  string   `json:"pass,omitempty"`
}

// Validate checks the request before anything is started.
func (r *RunRequest) Validate() error {
	if r.Kind == "" {
		r.Kind = report.KindStress
	}
	if r.Kind != report.KindStress && r.Kind != report.KindSizes {
		return fmt.Errorf("unknown run kind %q", r.Kind)
	}

	if slices.Contains(r.Nodes, "") {
		return errors.New("empty node name")
	}

	if r.URL == "" {
		return nil
	}

	parsedURL, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "https" && parsedURL.Scheme != "http" {
		return errors.New("only HTTP(S) URLs are allowed")
	}
	if parsedURL.Host == "" {
		return errors.New("URL has no host")
	}

	if r.User == "" {
		return errors.New("username is required")
	}
	if len(r.User) > config.MaxUsernameLength {
		return fmt.Errorf("username too long (max %d chars)", config.MaxUsernameLength)
	}
	if r.Pass == "" {
		return errors.New("password is required")
	}
	if len(r.Pass) > config.MaxPasswordLength {
		return fmt.Errorf("password too long (max %d chars)", config.MaxPasswordLength)
	}

	return nil
}

func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancelFunc != nil {
		http.Error(w, "Run already in progress", http.StatusConflict)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	go func() {
		defer func() {
			cancel()
			s.runMu.Lock()
			s.cancelFunc = nil
			s.runMu.Unlock()
		}()

		s.logger.Info("run started", "kind", req.Kind, "nodes", req.Nodes, "url", req.URL)
		s.run(ctx, req, s)
		s.logger.Info("run finished", "kind", req.Kind)
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HandleCancel(w http.ResponseWriter, r *http.Request) {
	s.runMu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.Broadcast("Run cancelled by user.")
	}
	s.runMu.Unlock()
	w.WriteHeader(http.StatusOK)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleIndex)
	mux.HandleFunc("/events", s.HandleEvents)
	mux.HandleFunc("/run", s.HandleRun)
	mux.HandleFunc("/run/cancel", s.HandleCancel)
	mux.HandleFunc("/report/download", s.HandleDownloadReport)
	return mux
}

// Listen serves until ctx is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	s.logger.Info("UI started", "url", fmt.Sprintf("http://localhost:%d", s.Port))
	close(s.ReadyChan)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
