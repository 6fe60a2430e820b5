package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lastmile/internal/core/application/livesync"
	"lastmile/internal/core/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const streamHeartbeat = 15 * time.Second

// StreamOrders handles GET /api/v1/orders/stream as server-sent events.
// Every change of the session's view is sent as an "orders" event. A slow
// client only gets the latest view.
func (s *Server) StreamOrders(c echo.Context) error {
	tab, err := services.ParseTab(c.QueryParam("tab"))
	if err != nil {
		return s.writeError(c, err)
	}

	views := make(chan livesync.View, 1)
	latest := func(v livesync.View) {
		for {
			select {
			case views <- v:
				return
			default:
			}
			select {
			case <-views:
			default:
			}
		}
	}

	ctx := c.Request().Context()
	controller, err := s.hub.Open(ctx, sessionFrom(c), tab, c.QueryParam("q"), latest)
	if err != nil {
		return s.writeError(c, err)
	}
	defer controller.Stop()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err = fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case v := <-views:
			payload, err := json.Marshal(viewToResponse(v))
			if err != nil {
				s.logger.Error("encode view failed", zap.Error(err))
				continue
			}
			if _, err = fmt.Fprintf(w, "event: orders\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
