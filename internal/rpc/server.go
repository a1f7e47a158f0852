// Package rpc provides the JSON-RPC 2.0 server for the xrpfleet daemon.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lawas-exchange/xrpfleet/internal/batch"
	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/internal/oracle"
	"github.com/lawas-exchange/xrpfleet/internal/reserve"
	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// Server is a JSON-RPC 2.0 server.
type Server struct {
	store        *wallet.Store
	client       ledger.Client
	rates        *oracle.Oracle
	reserves     *reserve.Calculator
	orchestrator *batch.Orchestrator
	log          *logging.Logger
	wsHub        *WSHub

	server   *http.Server
	listener net.Listener

	handlers map[string]Handler
	mu       sync.RWMutex
}

// Handler is a JSON-RPC method handler.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewServer creates a new JSON-RPC server.
func NewServer(store *wallet.Store, client ledger.Client, rates *oracle.Oracle, reserves *reserve.Calculator, orchestrator *batch.Orchestrator) *Server {
	s := &Server{
		store:        store,
		client:       client,
		rates:        rates,
		reserves:     reserves,
		orchestrator: orchestrator,
		log:          logging.GetDefault().Component("rpc"),
		handlers:     make(map[string]Handler),
	}

	// Batch progress flows out over the WebSocket hub.
	if orchestrator != nil {
		orchestrator.OnProgress(func(p batch.Progress) {
			if s.wsHub != nil {
				s.wsHub.Broadcast(EventBatchProgress, p)
			}
		})
	}

	s.registerHandlers()

	return s
}

// registerHandlers registers all JSON-RPC method handlers.
func (s *Server) registerHandlers() {
	// Wallet methods
	s.handlers["wallet_generate"] = s.walletGenerate
	s.handlers["wallet_import"] = s.walletImport
	s.handlers["wallet_importMnemonic"] = s.walletImportMnemonic
	s.handlers["wallet_list"] = s.walletList
	s.handlers["wallet_balances"] = s.walletBalances
	s.handlers["wallet_delete"] = s.walletDelete

	// Master wallet methods
	s.handlers["master_create"] = s.masterCreate
	s.handlers["master_set"] = s.masterSet
	s.handlers["master_importSeed"] = s.masterSet
	s.handlers["master_info"] = s.masterInfo
	s.handlers["master_broadcast"] = s.masterBroadcast
	s.handlers["master_collect"] = s.masterCollect

	// Trustline methods
	s.handlers["trustline_create"] = s.trustlineCreate
	s.handlers["trustline_createBatch"] = s.trustlineCreateBatch
	s.handlers["trustline_createAll"] = s.trustlineCreateAll
	s.handlers["trustline_setLawas"] = s.trustlineSetLawas
	s.handlers["trustline_view"] = s.trustlineView
	s.handlers["trustline_viewAll"] = s.trustlineViewAll

	// AMM methods
	s.handlers["amm_deposit"] = s.ammDeposit
	s.handlers["amm_depositBatch"] = s.ammDepositBatch
	s.handlers["amm_setLpTrustline"] = s.ammSetLpTrustline
	s.handlers["amm_poolRatio"] = s.ammPoolRatio

	// Swap methods
	s.handlers["swap_rate"] = s.swapRate
	s.handlers["swap_execute"] = s.swapExecute
	s.handlers["swap_supportedTokens"] = s.swapSupportedTokens

	// Reserve methods
	s.handlers["reserve_requirements"] = s.reserveRequirements
}

// Start starts the RPC server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.wsHub = NewWSHub()
	go s.wsHub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleRPC)
	mux.HandleFunc("POST /{$}", s.handleRPC)
	mux.HandleFunc("OPTIONS /", s.handleCORS)
	mux.HandleFunc("OPTIONS /{$}", s.handleCORS)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /ws/", s.handleWS)

	s.server = &http.Server{
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // batches block until validated
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("RPC server error", "error", err)
		}
	}()

	s.log.Info("RPC server started", "addr", addr, "ws", "ws://"+addr+"/ws")
	return nil
}

// Stop stops the RPC server.
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRPC handles incoming JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ParseError, "Parse error", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, InvalidRequest, "Invalid Request", nil)
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, req.ID, MethodNotFound, "Method not found", req.Method)
		return
	}

	result, err := handler(r.Context(), req.Params)
	if err != nil {
		s.writeError(w, req.ID, InternalError, err.Error(), nil)
		return
	}

	s.writeResult(w, req.ID, result)
}

// writeResult writes a successful response.
func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

// handleCORS handles CORS preflight requests.
func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware adds CORS headers to all responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The dashboard frontend runs on its own origin
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
