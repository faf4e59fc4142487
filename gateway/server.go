package gateway

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/services"
	"chat-relay/sink"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests into relay connections.
type Server struct {
	log            *slog.Logger
	service        services.IRelayService
	tokens         *auth.TokenManager // nil disables the token handshake
	validate       *validator.Validate
	upgrader       websocket.Upgrader
	connBufferSize int
	maxMessageSize int64
}

func NewServer(log *slog.Logger, service services.IRelayService,
	tokens *auth.TokenManager, connBufferSize int, maxMessageSize int64) *Server {
	return &Server{
		log:      log,
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The desktop shell loads the client from a local origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connBufferSize: connBufferSize,
		maxMessageSize: maxMessageSize,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// handleWS accepts one connection for its whole lifetime. The sink is
// attached before any frame is read so a join can be answered immediately.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.resolveIdentity(w, r)
	if !ok {
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := domain.ConnectionID(uuid.NewString())
	connSink := sink.NewConnSink(s.connBufferSize)
	s.service.Attach(id, connSink)
	s.log.Info("Connection accepted", "conn", id, "remote", r.RemoteAddr)

	conn := newConn(s.log, ws, s.service, connSink, s.validate, id, identity, s.maxMessageSize)
	go conn.writePump()
	conn.readPump()
}

// resolveIdentity checks the optional handshake token. When token auth is
// enabled and a token is supplied, it must validate; its subject then
// overrides the join display name. A missing token is allowed: the client
// picks a name at join time, as the original protocol does.
func (s *Server) resolveIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.tokens == nil {
		return "", true
	}
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		return "", true
	}
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		s.log.Warn("Rejecting handshake with invalid token", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}
