package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/commands"
	"github.com/songswap/songswap/songswap/components"
	"github.com/songswap/songswap/songswap/database"
	"github.com/songswap/songswap/songswap/database/repositories"
	"github.com/songswap/songswap/songswap/handlers"
	"github.com/songswap/songswap/songswap/logger"
	"github.com/songswap/songswap/songswap/services"
	"github.com/songswap/songswap/songswap/trade"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := songswap.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting SongSwap bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			slog.Error("Failed to close database connection", slog.Any("error", err))
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		slog.Error("Failed to ensure database indexes", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database connected",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := songswap.New(*cfg, version, commit)
	b.DB = db
	b.ServerRepository = repositories.NewServerRepository(db)
	b.UserRepository = repositories.NewUserRepository(db)
	b.TradeRepository = repositories.NewTradeRepository(db)
	b.EventRepository = repositories.NewEventRepository(db)

	var paste trade.Paster
	if cfg.Spaces.Key != "" {
		spaces, err := services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.Root,
		)
		if err != nil {
			slog.Error("Failed to set up spaces service", slog.Any("error", err))
			os.Exit(-1)
		}
		paste = spaces
	}

	b.Notifier = trade.NewDiscordNotifier()
	b.TradeManager = trade.NewManager(
		b.TradeRepository,
		b.ServerRepository,
		b.UserRepository,
		b.EventRepository,
		b.Notifier,
		paste,
	)

	h := handler.New()

	h.Command("/trade", handlers.WrapWithLogging("trade", commands.TradeHandler(b)))
	h.Autocomplete("/trade", commands.TradeAutocompleteHandler(b))
	h.Command("/opt", handlers.WrapWithLogging("opt", commands.OptHandler(b)))
	h.Command("/exclude", handlers.WrapWithLogging("exclude", commands.ExcludeHandler(b)))
	h.Command("/profile", handlers.WrapWithLogging("profile", commands.ProfileHandler(b)))
	h.Command("/server", handlers.WrapWithLogging("server", commands.ServerHandler(b)))
	h.Command("/tradehistory", handlers.WrapWithLogging("tradehistory", commands.TradeHistoryHandler(b)))
	h.Command("/version", commands.VersionHandler(b))

	h.Component(commands.OptInButtonID, handlers.WrapComponentWithLogging("opt-in-button", commands.OptInButtonHandler(b)))
	h.Component("/trade/song/{name}", handlers.WrapComponentWithLogging("song-button", components.SongButtonHandler(b)))
	h.Component("/trade/response/{name}", handlers.WrapComponentWithLogging("response-button", components.ResponseButtonHandler(b)))
	h.Modal("/modal/song/{name}", handlers.WrapModalWithLogging("song-submit", components.SongModalHandler(b)))
	h.Modal("/modal/response/{name}", handlers.WrapModalWithLogging("response-submit", components.ResponseModalHandler(b)))
	h.Modal(components.ProfileModalID, handlers.WrapModalWithLogging("profile-submit", components.ProfileModalHandler(b)))
	h.Modal(components.ProfileExtrasModalID, handlers.WrapModalWithLogging("profile-extras-submit", components.ProfileExtrasModalHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot", slog.Any("error", err))
		os.Exit(-1)
	}
	b.Notifier.SetClient(b.Client)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands", slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands", slog.Any("error", err))
		}
	}

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway", slog.Any("error", err))
		os.Exit(-1)
	}

	// Rearm timers only once the gateway is up, so overdue events can DM
	// right away.
	if err = b.TradeManager.Restore(context.Background()); err != nil {
		slog.Error("Failed to restore scheduled events", slog.Any("error", err))
		os.Exit(-1)
	}
	defer b.TradeManager.Shutdown()

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
