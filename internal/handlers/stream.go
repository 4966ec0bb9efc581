package handlers

import (
	"context"
	"net/http"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/services"
	"kubeops-dashboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Application close codes sent before the stream starts
const (
	closeUnauthenticated = 4401
	closeForbidden       = 4403
)

const writeWait = 10 * time.Second

// StreamHandler pushes cluster summaries over a websocket
type StreamHandler struct {
	auth     *services.AuthService
	targets  *services.TargetResolver
	overview *services.OverviewService
	interval time.Duration
	metrics  *telemetry.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(svc Services, interval time.Duration, origins []string, metrics *telemetry.Metrics, log *zap.Logger) *StreamHandler {
	return &StreamHandler{
		auth:     svc.Auth,
		targets:  svc.Targets,
		overview: svc.Overview,
		interval: interval,
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
	}
}

// Overview authenticates the token query parameter, then sends a summary
// every interval until the client goes away
func (h *StreamHandler) Overview(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	token := c.Query("token")
	if token == "" {
		h.closeWith(conn, closeUnauthenticated, "Missing token")
		return
	}
	if _, err := h.auth.Authenticate(token); err != nil {
		switch apperr.KindOf(err) {
		case apperr.Forbidden:
			h.closeWith(conn, closeForbidden, "User is not active")
		case apperr.Unauthenticated:
			h.closeWith(conn, closeUnauthenticated, "Invalid token")
		default:
			h.log.Error("stream authentication failed", zap.Error(err))
			h.closeWith(conn, websocket.CloseInternalServerErr, "internal server error")
		}
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	target, err := h.targets.Resolve(ctx, c.Query("cluster_id"))
	if err != nil {
		h.closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	// the read loop only exists to notice the peer closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		var payload interface{}
		summary, err := h.overview.SummaryFor(ctx, target)
		if err != nil {
			h.log.Warn("stream summary failed", zap.String("cluster", target.ClusterID), zap.Error(err))
			payload = gin.H{"error": err.Error()}
		} else {
			payload = summary
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Debug("stream write failed", zap.Error(err))
			return
		}

		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		h.log.Debug("websocket close failed", zap.Error(err))
	}
}

// originChecker admits requests without an Origin header, any origin when
// "*" is configured, and otherwise only the configured origins
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
