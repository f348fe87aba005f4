package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"CamuPos/app/config"
	"CamuPos/app/database"
	"CamuPos/app/services"
	"CamuPos/app/websocket"
)

// SyncLogReader exposes the local replication journal
type SyncLogReader interface {
	GetSyncLogs(limit int) ([]database.SyncLog, error)
	GetSyncStatus() (*database.SyncStatus, error)
}

// Deps are the services behind the HTTP surface. Sheets, SyncLogs, Hub and
// Chat may be nil.
type Deps struct {
	Dispatcher *services.Dispatcher
	Orders     *services.OrderService
	Auth       *services.AuthService
	Reports    *services.ReportService
	Payment    *services.PaymentService
	Chat       *services.ChatService
	Sheets     *services.GoogleSheetsService
	SyncLogs   SyncLogReader
	Hub        *websocket.Server
	Logger     *services.LoggerService
	DailySales int64
}

// Server is the admin and storefront HTTP API
type Server struct {
	deps    Deps
	cfg     config.ServerConfig
	engine  *gin.Engine
	http    *http.Server
	started time.Time
}

// NewServer builds the router
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = services.NewDiscardLogger()
	}
	if deps.Chat == nil {
		deps.Chat = services.NewChatService(deps.Dispatcher, nil, deps.Logger)
	}

	s := &Server{deps: deps, cfg: cfg, started: time.Now()}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(deps.Logger))
	s.engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", s.HandleHealth)
	if s.deps.Hub != nil {
		r.GET("/ws", gin.WrapF(s.deps.Hub.HandleWebSocket))
	}

	// --- PUBLIC: storefront ---
	r.POST("/api/login", s.HandleLogin)
	r.GET("/api/menu", s.HandleMenu)
	r.POST("/api/orders/online", s.HandlePlaceOnlineOrder)
	r.GET("/api/orders/online/:id", s.HandleTrackOnlineOrder)
	r.GET("/api/orders/online/:id/qris.png", s.HandleOnlineOrderQRIS)
	r.POST("/api/chat", s.HandleChat)

	// --- PROTECTED: cashier and admin ---
	staff := r.Group("/api")
	staff.Use(AuthMiddleware(s.deps.Auth))
	{
		staff.GET("/state", s.HandleGetState)

		staff.POST("/cart/items", s.HandleAddToCart)
		staff.PATCH("/cart/items/:key", s.HandleUpdateQty)
		staff.DELETE("/cart/items/:key", s.HandleRemoveFromCart)
		staff.DELETE("/cart", s.HandleClearCart)
		staff.POST("/cart/cancel-edit", s.HandleCancelEdit)

		staff.POST("/orders", s.HandleCheckout)
		staff.PUT("/orders/:id", s.HandleUpdateOrder)
		staff.PATCH("/orders/:id/status", s.HandleSetStatus)
		staff.DELETE("/orders/:id", s.HandleDeleteOrder)
		staff.POST("/orders/:id/edit", s.HandleBeginEdit)
		staff.POST("/orders/:id/notify", s.HandleNotify)
		staff.GET("/orders/:id/qris.png", s.HandleOrderQRIS)

		// ADMIN ONLY
		admin := staff.Group("/")
		admin.Use(RequireRole("admin"))
		{
			admin.DELETE("/transactions", s.HandleClearTransactions)

			admin.POST("/products", s.HandleAddProduct)
			admin.PATCH("/products/:id", s.HandleUpdateProduct)
			admin.DELETE("/products/:id", s.HandleDeleteProduct)
			admin.POST("/products/reset", s.HandleResetProducts)

			admin.POST("/expenses", s.HandleAddExpense)
			admin.PATCH("/expenses/:id", s.HandleUpdateExpense)
			admin.DELETE("/expenses/:id", s.HandleDeleteExpense)

			admin.GET("/reports/summary", s.HandleSummary)
			admin.GET("/reports/bep", s.HandleBreakEven)
			admin.GET("/reports/daily", s.HandleDailyReport)
			admin.GET("/reports/sheets", s.HandleSheetsStatus)
			admin.POST("/reports/sheets/sync", s.HandleSheetsSync)

			admin.GET("/sync/logs", s.HandleSyncLogs)
			admin.GET("/sync/status", s.HandleSyncStatus)

			admin.POST("/users", s.HandleCreateUser)
		}
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.deps.Logger.LogInfo("API server starting", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// HandleHealth reports liveness and the sync mode
func (s *Server) HandleHealth(c *gin.Context) {
	clients := 0
	if s.deps.Hub != nil {
		clients = s.deps.Hub.ClientCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"remote":  s.deps.Dispatcher.RemoteEnabled(),
		"clients": clients,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}
