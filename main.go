package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailassist/config"
	"mailassist/controller"
	"mailassist/handlers/api"
	"mailassist/handlers/web"
	"mailassist/llm"
	"mailassist/middleware"
	"mailassist/models"
	"mailassist/services"
	"mailassist/utils"
	"mailassist/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/websocket/v2"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	utils.Log.Info("Initializing mail assistant...")

	cfg, found, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(cfg.Server.LogLevel)
	utils.Log.SetFormat(cfg.Server.LogFormat)
	if !found {
		utils.Log.Warn("Config file %s not found, using defaults", *configPath)
	}

	if err := utils.InitI18n(cfg.Server.LocalesDir); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// AI services
	provider, err := llm.New(llm.Options{
		Provider:      cfg.LLM.Provider,
		Endpoint:      cfg.LLM.Endpoint,
		Model:         cfg.LLM.Model,
		Region:        cfg.LLM.Region,
		Timeout:       cfg.LLMTimeout(),
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxConcurrent: int64(cfg.LLM.MaxConcurrent),
	})
	if err != nil {
		utils.Log.Error("Failed to create LLM provider: %v", err)
		os.Exit(1)
	}
	utils.Log.Info("Using %s model %s", provider.Name(), cfg.LLM.Model)
	assistant := services.NewAssistant(provider, cfg.Assistant.MaxBodyChars)

	var source services.EmailSource = services.NewMockEmailSource()
	if cfg.Assistant.EmailFile != "" {
		loaded, err := services.LoadMockEmailSource(cfg.Assistant.EmailFile)
		if err != nil {
			utils.Log.Error("Failed to load email file %s: %v", cfg.Assistant.EmailFile, err)
			os.Exit(1)
		}
		source = loaded
	}

	defaults := models.DefaultSettings()
	defaults.SuggestionCount = cfg.Assistant.SuggestionCount
	defaults.SystemInstruction = cfg.Assistant.SystemInstruction

	// One controller per browser session; pages are told to refresh
	// whenever a background call settles.
	notifications := api.NewNotificationHandler()
	registry := controller.NewRegistry(cfg.SessionTTL(), func(sessionID string) *controller.Controller {
		return controller.New(source, assistant, assistant,
			controller.WithSettings(defaults),
			controller.WithLogger(utils.Log.WithField("session", sessionID[:min(8, len(sessionID))])),
			controller.WithOnChange(func() { notifications.NotifyStateChanged(sessionID) }),
		)
	})
	defer registry.Close()

	store := session.New(session.Config{
		Expiration:     cfg.SessionTTL(),
		CookieSecure:   false, // Set to true in production with HTTPS
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	app := fiber.New(fiber.Config{
		Views:        views.NewEngine(cfg.Server.TemplatesDir, cfg.Server.ReloadViews),
		ViewsLayout:  "layouts/main",
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New(compress.Config{
		// event streams are flushed per message
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/events" },
	}))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:;",
	}))

	app.Static("/assets", cfg.Server.AssetsDir, fiber.Static{
		Compress:      true,
		CacheDuration: 24 * time.Hour,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		checkCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "ok"
		available := llm.Available(checkCtx, provider)
		if !available {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":   status,
			"provider": provider.Name(),
			"llm":      available,
			"sessions": registry.Len(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	app.Use(middleware.LocaleMiddleware())
	app.Use(middleware.RateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateWindow()))
	app.Use(middleware.PanelSession(store))
	app.Use(middleware.CSRFProtection())

	panel := web.NewPanelHandler(registry, web.Background, 3*cfg.LLMTimeout())
	settingsHandler := web.NewSettingsHandler(panel)
	replyHandler := web.NewReplyHandler(panel)
	stateHandler := api.NewStateHandler(registry)
	i18nHandler := &api.I18nHandler{}

	// Panel routes
	app.Get("/", panel.ShowPanel)
	app.Post("/instructions", panel.HandleInstructions)
	app.Post("/suggestions/back", panel.HandleBack)
	app.Post("/theme/toggle", panel.HandleThemeToggle)
	app.Post("/reload", panel.HandleReload)
	app.Get("/settings", settingsHandler.ShowSettings)
	app.Post("/settings", settingsHandler.UpdateSettings)

	// API routes
	apiRoutes := app.Group("/api")
	{
		apiRoutes.Get("/state", stateHandler.GetState)
		apiRoutes.Get("/tones", stateHandler.GetTones)
		apiRoutes.Get("/i18n/:lang", i18nHandler.GetTranslations)
		apiRoutes.Get("/events", notifications.HandleSSE)
		apiRoutes.Get("/suggestions/:index/reply", replyHandler.HandleSuggestionReply)
	}

	app.Get("/ws", notifications.UpgradeWebSocket, websocket.New(notifications.HandleWebSocket))

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, utils.T(middleware.Localizer(c), "error_404"))
	})

	go func() {
		<-ctx.Done()
		utils.Log.Info("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.Log.Error("Shutdown failed: %v", err)
		}
	}()

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
