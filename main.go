package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/gorm"

	"CamuPos/app/api"
	"CamuPos/app/config"
	"CamuPos/app/database"
	"CamuPos/app/persistence"
	"CamuPos/app/services"
	"CamuPos/app/store"
	"CamuPos/app/websocket"
)

// Retention for the local sync journal and the daily log files
const (
	syncLogRetentionDays = 30
	logRetentionDays     = 30
)

// App holds the running services
type App struct {
	cfg                    *config.Config
	LoggerService          *services.LoggerService
	LocalDB                *database.LocalDB
	RemoteDB               *gorm.DB
	Store                  *store.Store
	Worker                 *services.ReplicationWorker
	Dispatcher             *services.Dispatcher
	NotifierService        *services.NotifierService
	OrderService           *services.OrderService
	AuthService            *services.AuthService
	ReportService          *services.ReportService
	PaymentService         *services.PaymentService
	ChatService            *services.ChatService
	GoogleSheetsService    *services.GoogleSheetsService
	ReportSchedulerService *services.ReportSchedulerService
	WSServer               *websocket.Server
	API                    *api.Server
	gemini                 *services.GeminiCompleter
	detach                 []func()
}

// NewApp creates a new App
func NewApp(cfg *config.Config, logger *services.LoggerService) *App {
	return &App{cfg: cfg, LoggerService: logger}
}

// startup opens storage, restores state and wires every service. Only the
// local database is required; every remote integration degrades to off.
func (a *App) startup(ctx context.Context) error {
	local, err := database.OpenLocalDB(a.cfg.Local.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}
	a.LocalDB = local
	a.LoggerService.LogInfo("Local database opened", local.Path())
	if err := local.ClearSyncLogs(syncLogRetentionDays); err != nil {
		a.LoggerService.LogWarning("Could not prune sync logs", err.Error())
	}

	initial, err := persistence.Load(local, store.DefaultCatalog())
	if err != nil {
		a.LoggerService.LogWarning("Could not read saved state, starting from the default catalog", err.Error())
	}
	a.Store = store.New(initial, store.NewReducer())
	a.detach = append(a.detach, persistence.NewMirror(local, a.LoggerService).Attach(a.Store))
	a.LoggerService.LogInfo("State restored",
		fmt.Sprintf("products=%d", len(initial.Products)),
		fmt.Sprintf("orders=%d", initial.OrderCount()),
		fmt.Sprintf("expenses=%d", len(initial.Expenses)))

	// Remote replication
	var remote *database.RemoteStore
	a.RemoteDB, err = database.OpenRemote(ctx, a.cfg.Remote)
	switch {
	case errors.Is(err, database.ErrRemoteDisabled):
		a.LoggerService.LogInfo("No remote database configured, running local-only")
	case err != nil:
		a.LoggerService.LogError("Remote database unavailable, running local-only", err)
	default:
		remote = database.NewRemoteStore(a.RemoteDB)
		a.LoggerService.LogInfo("Remote database connected", "driver="+a.cfg.Remote.Driver)
	}

	var tables services.RemoteTables
	var users services.UserStore
	if remote != nil {
		tables, users = remote, remote
	}
	a.Worker = services.NewReplicationWorker(tables, local, a.LoggerService)
	a.Worker.Start()
	a.Dispatcher = services.NewDispatcher(a.Store, a.Worker, a.LoggerService)

	hydrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := a.Dispatcher.Hydrate(hydrateCtx); err != nil {
		a.LoggerService.LogWarning("Remote hydrate incomplete, keeping local data", err.Error())
	}
	cancel()

	// Messaging
	var whatsapp, owner services.Messenger
	if a.cfg.WhatsApp.Enabled() {
		whatsapp = services.NewFonnteMessenger(a.cfg.WhatsApp)
	}
	if a.cfg.Telegram.Enabled() {
		bot, err := services.NewTelegramMessenger(a.cfg.Telegram)
		if err != nil {
			a.LoggerService.LogWarning("Telegram bot unavailable", err.Error())
		} else {
			owner = bot
		}
	}
	a.NotifierService = services.NewNotifierService(whatsapp, owner, a.LoggerService)

	a.OrderService = services.NewOrderService(a.Dispatcher, a.NotifierService, a.LoggerService)
	a.AuthService = services.NewAuthService(users, a.cfg.Auth)
	a.ReportService = services.NewReportService(a.Dispatcher, a.cfg.Reports)
	a.PaymentService = services.NewPaymentService(a.cfg.Payment)

	// Assistant
	var completer services.Completer
	if a.cfg.Assistant.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiCompleter(ctx, a.cfg.Assistant)
		if err != nil {
			a.LoggerService.LogWarning("Gemini unavailable, assistant uses keywords", err.Error())
		} else {
			a.gemini = gemini
			completer = gemini
		}
	}
	a.ChatService = services.NewChatService(a.Dispatcher, completer, a.LoggerService)

	// Google Sheets daily report
	var values services.SheetValues
	if a.cfg.Sheets.Enabled() {
		values, err = services.NewSheetValues(ctx, a.cfg.Sheets)
		if err != nil {
			a.LoggerService.LogWarning("Google Sheets unavailable", err.Error())
			values = nil
		}
	}
	a.GoogleSheetsService = services.NewGoogleSheetsService(values, a.cfg.Sheets, a.ReportService, a.LoggerService)
	a.ReportSchedulerService = services.NewReportSchedulerService(a.GoogleSheetsService, a.cfg.Sheets.SyncTime, a.LoggerService)
	if err := a.ReportSchedulerService.Start(); err != nil {
		a.LoggerService.LogWarning("Report scheduler start error", err.Error())
	}

	// Live updates
	a.WSServer = websocket.NewServer(func(token string) bool {
		_, err := a.AuthService.ValidateToken(token)
		return err == nil
	})
	a.WSServer.Start()
	a.detach = append(a.detach, a.Dispatcher.Subscribe(a.WSServer.OnAction))
	if a.cfg.Server.AnnounceMDNS {
		if err := a.WSServer.Announce(a.cfg.Server.Port); err != nil {
			a.LoggerService.LogWarning("mDNS announce failed", err.Error())
		}
	}

	a.API = api.NewServer(a.cfg.Server, api.Deps{
		Dispatcher: a.Dispatcher,
		Orders:     a.OrderService,
		Auth:       a.AuthService,
		Reports:    a.ReportService,
		Payment:    a.PaymentService,
		Chat:       a.ChatService,
		Sheets:     a.GoogleSheetsService,
		SyncLogs:   local,
		Hub:        a.WSServer,
		Logger:     a.LoggerService,
		DailySales: a.cfg.Reports.DailySales,
	})
	return nil
}

// shutdown stops services in reverse order of startup
func (a *App) shutdown() {
	a.LoggerService.LogInfo("Application closing")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if a.API != nil {
		if err := a.API.Shutdown(ctx); err != nil {
			a.LoggerService.LogError("API server shutdown error", err)
		}
	}
	if a.WSServer != nil {
		a.WSServer.Stop()
	}

	// Send final report to Google Sheets if enabled
	if a.GoogleSheetsService != nil && a.GoogleSheetsService.Enabled() {
		if err := a.GoogleSheetsService.SyncNow(ctx); err != nil {
			a.LoggerService.LogWarning("Failed to send final report to Google Sheets", err.Error())
		}
	}
	if a.ReportSchedulerService != nil {
		a.ReportSchedulerService.Stop()
	}

	// Drain pending replication before closing the connections it uses
	if a.Worker != nil {
		a.Worker.Stop()
	}
	for _, detach := range a.detach {
		detach()
	}
	if a.gemini != nil {
		a.gemini.Close()
	}
	if err := database.Close(a.RemoteDB); err != nil {
		a.LoggerService.LogError("Error closing remote database", err)
	}
	if a.LocalDB != nil {
		if err := a.LocalDB.Close(); err != nil {
			a.LoggerService.LogError("Error closing local database", err)
		}
	}
	a.LoggerService.LogInfo("Application shutdown complete")
}

// createUser handles -create-user username:password[:role]
func createUser(ctx context.Context, cfg *config.Config, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 {
		return errors.New("expected username:password[:role]")
	}
	role := ""
	if len(parts) == 3 {
		role = parts[2]
	}
	db, err := database.OpenRemote(ctx, cfg.Remote)
	if err != nil {
		return err
	}
	defer database.Close(db)

	auth := services.NewAuthService(database.NewRemoteStore(db), cfg.Auth)
	user, err := auth.CreateUser(ctx, strings.ToLower(parts[0]), parts[1], role)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s)\n", user.Username, user.Role)
	return nil
}

func main() {
	initConfig := flag.Bool("init-config", false, "write the effective configuration to DATA_DIR/config.json and exit")
	newUser := flag.String("create-user", "", "create an admin account as username:password[:role] and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("CRITICAL: could not load configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *initConfig:
		if err := cfg.Save(); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", cfg.Path())
		return
	case *newUser != "":
		if err := createUser(ctx, cfg, *newUser); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		return
	}

	// Initialize logger FIRST to catch all errors
	loggerService := services.NewLoggerService(cfg.Local.LogDir)
	defer loggerService.Close()

	// Recover from any panic and log it
	defer func() {
		if r := recover(); r != nil {
			loggerService.LogPanic(r)
			os.Exit(1)
		}
	}()

	loggerService.LogInfo("Application starting", "Camu Camu POS")
	if err := loggerService.CleanOldLogs(logRetentionDays); err != nil {
		loggerService.LogWarning("Could not clean old logs", err.Error())
	}

	app := NewApp(cfg, loggerService)
	if err := app.startup(ctx); err != nil {
		loggerService.LogError("Startup failed", err)
		app.shutdown()
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		defer loggerService.RecoverPanic()
		serverErr <- app.API.Start()
	}()

	select {
	case <-ctx.Done():
		loggerService.LogInfo("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			loggerService.LogError("API server error", err)
		}
	}
	app.shutdown()
}
