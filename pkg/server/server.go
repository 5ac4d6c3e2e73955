package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"tidestore/pkg/auth"
	"tidestore/pkg/collection"
	"tidestore/pkg/document"
	"tidestore/pkg/lsm"
)

// Server is the thin HTTP façade in front of one or more named collections,
// each backed by its own LSM engine rooted under config.DataDir. It stands
// in for the engine's out-of-scope gRPC service.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time

	authMgr *auth.AuthManager

	mu          sync.Mutex
	collections map[string]*collection.Collection

	watch *watchHub
}

// New creates a new façade instance. Collections are opened lazily, on
// first use, rather than all at once at startup.
func New(config *Config) (*Server, error) {
	if config.EnableTLS {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key file not specified")
		}
		if _, err := os.Stat(config.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file not found: %s", config.TLSCertFile)
		}
		if _, err := os.Stat(config.TLSKeyFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS key file not found: %s", config.TLSKeyFile)
		}
	}

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", config.DataDir, err)
	}

	srv := &Server{
		config:      config,
		router:      chi.NewRouter(),
		startTime:   time.Now(),
		authMgr:     auth.NewAuthManager(),
		collections: make(map[string]*collection.Collection),
		watch:       newWatchHub(),
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.EnableAuth {
		s.router.Use(s.basicAuthMiddleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/_health", s.handleHealth)
	s.router.Get("/_ws/watch", s.handleWatch)

	s.router.Route("/{collection}", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Post("/_doc", s.handleInsert)
		r.Put("/_doc/{id}", s.handleInsertWithID)
		r.Get("/_doc/{id}", s.handleGet)
		r.Delete("/_doc/{id}", s.handleDelete)
		r.Post("/_compact", s.handleCompact)
		r.Get("/_stats", s.handleStats)
	})
}

// collectionFor returns the named collection, opening its backing engine on
// first access.
func (s *Server) collectionFor(name string) (*collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	enginePath := filepath.Join(s.config.DataDir, name)
	var (
		engine *lsm.Engine
		err    error
	)
	if _, statErr := os.Stat(enginePath); statErr == nil {
		engine, err = lsm.Load(name, enginePath)
	} else {
		engine, err = lsm.New(name, enginePath)
	}
	if err != nil {
		return nil, err
	}

	c := collection.Open(name, engine)
	s.collections[name] = c
	return c, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id, err := c.Insert(document.NewDocumentFromMap(body))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}

	s.watch.publish(name, "insert", id)
	WriteSuccess(w, map[string]interface{}{"_id": id.Hex()})
}

func (s *Server) handleInsertWithID(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	id, err := document.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_id", err.Error())
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := c.InsertWithID(id, document.NewDocumentFromMap(body)); err != nil {
		WriteError(w, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}

	s.watch.publish(name, "insert", id)
	WriteSuccess(w, map[string]interface{}{"_id": id.Hex()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	id, err := document.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_id", err.Error())
		return
	}

	doc, err := c.FindByID(id)
	if err == collection.ErrNotFound {
		WriteError(w, http.StatusNotFound, "not_found", "no document with that id")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}

	WriteSuccess(w, doc.ToMap())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	id, err := document.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_id", err.Error())
		return
	}

	if err := c.DeleteByID(id); err != nil {
		WriteError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}

	s.watch.publish(name, "delete", id)
	WriteSuccess(w, map[string]interface{}{"_id": id.Hex()})
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := c.Compact(force); err != nil {
		WriteError(w, http.StatusInternalServerError, "compact_failed", err.Error())
		return
	}

	WriteSuccess(w, nil)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	c, err := s.collectionFor(name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	WriteSuccess(w, c.Stats())
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.watch.register(conn)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="tidestore"`)
			WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		if err := s.authMgr.Authenticate(user, pass); err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="tidestore"`)
			WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until an error occurs or a shutdown signal is
// received, in which case it shuts down gracefully.
func (s *Server) Start() error {
	fmt.Printf("tidestore server starting on %s:%d (data dir %s)\n", s.config.Host, s.config.Port, s.config.DataDir)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server and closes every open engine.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		fmt.Printf("server shutdown error: %v\n", err)
	}

	s.watch.closeAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.collections {
		if err := c.Close(); err != nil {
			fmt.Printf("error closing collection %s: %v\n", name, err)
		}
	}
	return nil
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("error encoding JSON response: %v\n", err)
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	WriteJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
	})
}

// WriteSuccess writes a success response.
func WriteSuccess(w http.ResponseWriter, result interface{}) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": result,
	})
}
