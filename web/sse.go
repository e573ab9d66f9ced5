package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"livescore-service/metrics"
	"livescore-service/models"
	"livescore-service/pkg/common"
)

// writeSSEPreamble 写入重连间隔和连接确认注释
func writeSSEPreamble(w io.Writer, retryMillis int) error {
	_, err := fmt.Fprintf(w, "retry: %d\n\n: connected\n\n", retryMillis)
	return err
}

// writeSSEEvents 写入一帧 "data: <json数组>"
func writeSSEEvents(w io.Writer, events []models.MatchEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// handleEventStream 拉取通道: 每个间隔重新查询并发送最近事件
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.events.Exists(r.Context(), matchID); err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, common.NewAppError("stream", "streaming unsupported", nil))
		return
	}

	// 长连接不受服务器 WriteTimeout 限制
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.log.Printf("Failed to clear write deadline for stream %d: %v", matchID, err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSEPreamble(w, s.config.RetryMillis); err != nil {
		return
	}
	flusher.Flush()

	metrics.PullStreams.Inc()
	defer metrics.PullStreams.Dec()
	s.log.Printf("Event stream opened for match %d", matchID)

	err = s.events.Stream(r.Context(), matchID, func(events []models.MatchEvent) error {
		if err := writeSSEEvents(w, events); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.log.Printf("Event stream for match %d ended: %v", matchID, err)
		return
	}
	s.log.Printf("Event stream closed for match %d", matchID)
}
