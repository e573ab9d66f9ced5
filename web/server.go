package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"livescore-service/config"
	"livescore-service/logger"
	"livescore-service/models"
	"livescore-service/pkg/common"
	"livescore-service/services"
)

const matchesCacheKey = "matches"

type Server struct {
	config     *config.Config
	store      services.MatchStore
	simulator  *services.MatchSimulator
	events     *services.EventStream
	wsHub      *Hub
	cache      *services.QueryCache
	httpServer *http.Server
	log        logger.Component

	// 请求上下文的根, Shutdown 时取消, 使 SSE 长连接退出
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewServer(cfg *config.Config, store services.MatchStore, sim *services.MatchSimulator, events *services.EventStream, hub *Hub) *Server {
	s := &Server{
		config:    cfg,
		store:     store,
		simulator: sim,
		events:    events,
		wsHub:     hub,
		cache:     services.NewQueryCache(time.Second),
		log:       logger.For("Server"),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return s.baseCtx
		},
	}
	s.httpServer.RegisterOnShutdown(s.cancelBase)
	return s
}

// Handler 构建路由 (带 CORS)
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/matches", s.handleGetMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}/events", s.handleApplyEvent).Methods("POST")
	api.HandleFunc("/matches/{id}/events/stream", s.handleEventStream).Methods("GET")

	// WebSocket路由
	router.HandleFunc("/ws", s.wsHub.ServeWS)

	// Prometheus 指标
	router.Handle("/metrics", promhttp.Handler())

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func (s *Server) Start() error {
	s.log.Printf("Listening on :%s", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve 在已有的 listener 上提供服务
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭; 进行中的事件流随根上下文一起取消
func (s *Server) Stop(ctx context.Context) error {
	s.cancelBase()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Errorf("Server shutdown error: %v", err)
		return err
	}
	return nil
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Unix(),
		"matches":     s.simulator.Count(),
		"connections": s.wsHub.ClientCount(),
		"rooms":       s.wsHub.RoomCount(),
	})
}

// handleGetMatches 获取所有比赛
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	data, err := s.cache.GetOrLoad(matchesCacheKey, func() (interface{}, error) {
		return s.store.GetAll(r.Context())
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	matches := data.([]*models.Match)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// handleGetMatch 获取单场比赛
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	match, err := s.store.Get(r.Context(), matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// handleApplyEvent 外部注入事件
func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var ev models.MatchEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, common.NewValidationError("body", err.Error()))
		return
	}

	match, err := s.simulator.ApplyEvent(r.Context(), matchID, ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cache.Delete(matchesCacheKey)
	writeJSON(w, http.StatusOK, match)
}

func matchIDFromRequest(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError("id", "invalid match id "+strconv.Quote(raw))
	}
	return id, nil
}

// writeError NotFound -> 404, 验证错误 -> 400, 其它 -> 500
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case common.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case common.IsValidation(err):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		s.log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
