package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jpalmerr/tinystore"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown after the context is cancelled.
	shutdownTimeout = 5 * time.Second

	// maxActionBodySize caps POST /api/actions request bodies.
	maxActionBodySize = 1 << 20 // 1MB

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "tinystore"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Dispatcher is the part of a store the server writes to.
type Dispatcher interface {
	Dispatch(action tinystore.Action) tinystore.Outcome
}

// DispatchResponse is the body returned by POST /api/actions.
//
// Seq and State come from the hub's latest snapshot read after the
// dispatch returned. Concurrent dispatches may already be folded into
// it; compare Seq with the SSE stream to place the state in order.
// When the Dispatcher is not the store the hub watches, the snapshot
// does not reflect the dispatch at all.
type DispatchResponse[S any] struct {
	Outcome tinystore.Outcome `json:"outcome"`
	Seq     uint64            `json:"seq"`
	State   S                 `json:"state"`
}

// Server handles HTTP requests for the store inspector.
//
// Server provides four endpoints:
//   - GET /: Embedded inspector page, or a plain-text banner without assets
//   - GET /api/state: Latest snapshot as JSON
//   - POST /api/actions: Dispatches a JSON action and returns the outcome
//   - GET /api/sse: Server-Sent Events stream of snapshots
//
// Panics raised by the reducer or a listener while handling a request
// are recovered by the router and answered with 500.
type Server[S any] struct {
	hub        *Hub[S]
	dispatcher Dispatcher
	port       int
	title      string
	assets     fs.FS
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
	done       chan struct{}
}

// NewServer creates a new inspector [Server].
//
// Parameters:
//   - hub: Hub attached to the store being inspected
//   - d: Dispatcher for incoming actions, normally the same store
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing assets/index.html (may be nil)
//   - title: Page title (defaults to "tinystore" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer[S any](hub *Hub[S], d Dispatcher, port int, assets fs.FS, title string, logger *slog.Logger) *Server[S] {
	if title == "" {
		title = defaultTitle
	}

	s := &Server[S]{
		hub:        hub,
		dispatcher: d,
		port:       port,
		title:      title,
		assets:     assets,
		logger:     logger,
		done:       make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

// routes builds the chi router.
func (s *Server[S]) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/actions", s.handleDispatch)
		r.Get("/sse", s.handleSSE)
	})
	return r
}

// Handler returns the server's router, for tests and embedding.
func (s *Server[S]) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the
// server is listening. The server runs until the context is cancelled,
// at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server[S]) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.router,
		// request contexts derive from ctx so SSE streams end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Done returns a channel that is closed once the server has shut down
// after a successful [Server.Start].
func (s *Server[S]) Done() <-chan struct{} {
	return s.done
}

// handleIndex serves the inspector page with the title substituted, or
// a plain-text banner when no assets are configured.
func (s *Server[S]) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprintf(w, "%s\n\nGET  /api/state\nPOST /api/actions\nGET  /api/sse\n", s.title); err != nil {
			s.logger.Error("failed to write index response", "error", err)
		}
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Inspector page not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write index response", "error", err)
	}
}

// handleState returns the latest snapshot as JSON.
func (s *Server[S]) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.hub.Latest()); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleDispatch decodes an action from the body and dispatches it.
//
// A malformed action (no type) is still dispatched, as the store expects,
// and is reported with outcome "malformed" and status 422.
func (s *Server[S]) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var action tinystore.Action
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBodySize))
	if err := dec.Decode(&action); err != nil {
		http.Error(w, "invalid action: "+err.Error(), http.StatusBadRequest)
		return
	}

	outcome := s.dispatcher.Dispatch(action)

	s.logger.Debug("action dispatched",
		"request_id", middleware.GetReqID(r.Context()),
		"type", action.Type,
		"outcome", outcome.String(),
	)

	status := http.StatusOK
	if outcome == tinystore.OutcomeMalformed {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	latest := s.hub.Latest()
	resp := DispatchResponse[S]{Outcome: outcome, Seq: latest.Seq, State: latest.State}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode dispatch response", "error", err)
	}
}

// handleSSE streams snapshots via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected.
func (s *Server[S]) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	clientID := uuid.NewString()
	logger := s.logger.With("client_id", clientID)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(snap Snapshot[S]) error {
		data, err := json.Marshal(snap)
		if err != nil {
			logger.Error("failed to encode snapshot", "seq", snap.Seq, "error", err)
			return nil
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", snap.Seq, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before reading Latest so no snapshot falls in between
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	logger.Debug("sse client connected")
	defer logger.Debug("sse client disconnected")

	// r.Context() fires on client disconnect and on server shutdown
	streamSnapshots(r.Context().Done(), s.hub.Latest(), ch, writeAndFlush)
}

// streamSnapshots writes first, then each snapshot from ch that is newer
// than the last one written. It returns when ch is closed, done fires or
// a write fails.
//
// ch is opened before first is read, so it may repeat snapshots up to
// first.Seq; those are skipped.
func streamSnapshots[S any](done <-chan struct{}, first Snapshot[S], ch <-chan Snapshot[S], write func(Snapshot[S]) error) {
	if err := write(first); err != nil {
		return
	}
	last := first.Seq

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap.Seq <= last {
				continue
			}
			if err := write(snap); err != nil {
				return
			}
			last = snap.Seq

		case <-done:
			return
		}
	}
}
