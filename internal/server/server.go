package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/John-Robertt/catalogd/internal/app/lookup"
	"github.com/John-Robertt/catalogd/internal/domain"
)

const (
	// RequestIDHeader 在请求与响应上都会出现；客户端提供时沿用。
	RequestIDHeader = "X-Request-ID"

	ServiceName = "catalog_lookup"

	msgMissingCatalog = "Missing catalog number"
	msgInvalidJSON    = "Invalid JSON body"

	shutdownTimeout = 5 * time.Second
	requestIDKey    = "request_id"
)

// Looker 是 HTTP 层唯一依赖的核心接口（*lookup.Service 实现它）。
type Looker interface {
	Lookup(ctx context.Context, raw string, obs lookup.Observer) (domain.LookupResponse, error)
}

type lookupRequest struct {
	CatalogNumber *string `json:"catalog_number"`
}

// Server 把 Looker 暴露为 JSON over HTTP。
type Server struct {
	looker Looker
	log    hclog.Logger
	engine *gin.Engine
}

// New 构造路由；log 为 nil 时不输出日志。
func New(looker Looker, log hclog.Logger) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &Server{looker: looker, log: log}

	r := gin.New()
	r.Use(s.requestID(), s.accessLog(), s.recovery(), cors())
	r.POST("/lookup/catalog", s.handleLookup)
	r.GET("/health", handleHealth)
	s.engine = r
	return s
}

// Handler 返回可直接挂到 http.Server 或 httptest 上的 handler。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听 addr，直到 ctx 结束后优雅关闭。
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败：%w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在已有 listener 上提供服务；ctx 结束时在 shutdownTimeout 内关闭。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 http server 失败：%w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleLookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingCatalog})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
		return
	}
	if req.CatalogNumber == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingCatalog})
		return
	}

	ctx := lookup.WithRequestID(c.Request.Context(), c.GetString(requestIDKey))
	resp, err := s.looker.Lookup(ctx, *req.CatalogNumber, nil)
	if err != nil {
		if errors.Is(err, lookup.ErrEmptyCatalog) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingCatalog})
			return
		}
		s.log.Error("lookup failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// recovery 把 handler 内的 panic 转成 500 {"error": <fault text>}。
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		s.log.Error("panic recovered", "request_id", c.GetString(requestIDKey), "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(rec)})
	})
}

// cors 允许任意来源；OPTIONS 预检直接 204。
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
