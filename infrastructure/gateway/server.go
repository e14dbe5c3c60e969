// Package gateway is the client-facing edge of an instance: the websocket
// endpoint carrying sessions and the HTTP routes that create groups and
// issue access tokens.
package gateway

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AccessTokenCookie = "access-token"
	groupHeader       = "group"
	tokenHeader       = "token"
)

type Config struct {
	Host                 string
	Port                 int
	ConnectionBufferSize int
	WriteTimeout         time.Duration
	AccessTokenTTL       time.Duration
}

type Server struct {
	log      *slog.Logger
	chat     contract.ChatService
	cfg      Config
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(log *slog.Logger, chat contract.ChatService, cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		log:  log,
		chat: chat,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.engine.POST("/chat", s.createGroup)
	s.engine.GET("/chat", s.issueAccessToken)
	s.engine.GET("/ws", s.serveWebsocket)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts the listener down. Upgraded
// websockets are not tracked by the HTTP server; the runtime closes them.
func (s *Server) Run(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	server := &http.Server{Addr: address, Handler: s.engine}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gateway", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("gateway server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// createGroup handles POST /chat?user=U with the group secret in the token header.
func (s *Server) createGroup(c *gin.Context) {
	user := c.Query("user")
	token := c.GetHeader(tokenHeader)
	if user == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user and token are required"})
		return
	}

	groupID, err := s.chat.CreateGroup(c.Request.Context(), user, token)
	if err != nil {
		s.log.Warn("Group creation failed", "user", user, "error", err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Header(groupHeader, groupID.String())
	c.JSON(http.StatusCreated, gin.H{"group": groupID})
}

// issueAccessToken handles GET /chat?user=U&group=G&token=T.
func (s *Server) issueAccessToken(c *gin.Context) {
	user := c.Query("user")
	groupID := domain.GroupID(c.Query("group"))
	token := c.Query("token")
	if user == "" || groupID == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user, group and token are required"})
		return
	}
	if _, err := groupID.Numeric(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := s.chat.IssueAccessToken(c.Request.Context(), user, groupID, token)
	if err != nil {
		s.log.Debug("Access token refused", "user", user, "group_id", groupID, "error", err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.SetCookie(AccessTokenCookie, accessToken, int(s.cfg.AccessTokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

func statusOf(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrGroupExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrGroupNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrTokenMismatch):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrGroupFull):
		return http.StatusNotAcceptable
	case stderrors.Is(err, errors.ErrInvalidGroupID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// serveWebsocket upgrades the request and pumps inbound text frames into the
// session. Frames are handed over by a separate goroutine so that a client
// going away is noticed even while a login is still replaying.
func (s *Server) serveWebsocket(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Failed to upgrade the websocket", "error", err)
		return
	}
	conn := newWSConn(ws, s.log, s.cfg.ConnectionBufferSize, s.cfg.WriteTimeout)
	sessionID := s.chat.Open(conn)
	s.log.Debug("Websocket client connected", "session_id", sessionID, "remote", c.Request.RemoteAddr)

	frames := make(chan string, 1)
	go s.dispatch(c.Request.Context(), sessionID, conn, frames)

	defer func() {
		close(frames)
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()
		s.chat.OnConnectionClosed(ctx, sessionID)
		_ = conn.Close()
		s.log.Debug("Websocket client disconnected", "session_id", sessionID)
	}()

	for {
		kind, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			s.log.Warn("Closing connection", "session_id", sessionID, "error", errors.ErrInvalidFrame)
			return
		}
		select {
		case frames <- string(payload):
		case <-conn.Done():
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sessionID string, conn *wsConn, frames <-chan string) {
	for text := range frames {
		if err := s.chat.DeliverInboundText(ctx, sessionID, text); err != nil {
			if stderrors.Is(err, errors.ErrQuitRequested) {
				s.log.Debug("Client quit", "session_id", sessionID)
			} else {
				s.log.Warn("Closing session", "session_id", sessionID, "error", err)
			}
			// Closing the socket unblocks the reader, which tears the session down.
			conn.shutdown()
			return
		}
	}
}
