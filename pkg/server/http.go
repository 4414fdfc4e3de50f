package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/exsim/exsim/pkg/engine"
	"github.com/exsim/exsim/pkg/engine/orderbook"
)

// APIServer carries the operator HTTP surface and the websocket order
// endpoint.
type APIServer struct {
	matcher *engine.Matcher
	router  *mux.Router
	log     *zap.SugaredLogger
}

func NewAPIServer(matcher *engine.Matcher, log *zap.SugaredLogger) *APIServer {
	s := &APIServer{
		matcher: matcher,
		router:  mux.NewRouter(),
		log:     log.Named("api"),
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/books", s.handleListBooks).Methods("GET")
	api.HandleFunc("/books/{symbol}", s.handleGetBook).Methods("GET")

	// WebSocket order entry, same protocol as the TCP endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the router wrapped with CORS, for mounting in tests
// or a caller-owned http.Server.
func (s *APIServer) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	})
	return c.Handler(s.router)
}

func (s *APIServer) Start(addr string) error {
	s.log.Infow("listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *APIServer) handleListBooks(w http.ResponseWriter, r *http.Request) {
	symbols := s.matcher.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	s.writeJSON(w, map[string]interface{}{"symbols": symbols})
}

func (s *APIServer) handleGetBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	bids, asks, ok := s.matcher.BookDepth(symbol)
	if !ok {
		http.Error(w, "book not found", http.StatusNotFound)
		return
	}
	if bids == nil {
		bids = []orderbook.PriceLevel{}
	}
	if asks == nil {
		asks = []orderbook.PriceLevel{}
	}
	s.writeJSON(w, map[string]interface{}{
		"symbol": symbol,
		"bids":   bids,
		"asks":   asks,
	})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("response_write_failed", "err", err)
	}
}
