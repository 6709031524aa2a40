package main

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	telegramadmin "github.com/agora-labs/gatekeeper/groupadmin/telegram"
	identityrepo "github.com/agora-labs/gatekeeper/identity/repository"
	ledgerclient "github.com/agora-labs/gatekeeper/ledger/client"
	ledgerusecase "github.com/agora-labs/gatekeeper/ledger/usecase"
	linkerhttpdelivery "github.com/agora-labs/gatekeeper/linker/delivery/http"
	"github.com/agora-labs/gatekeeper/log"
	"github.com/agora-labs/gatekeeper/middleware"
	reconcilerusecase "github.com/agora-labs/gatekeeper/reconciler/usecase"
	systemhttpdelivery "github.com/agora-labs/gatekeeper/system/delivery/http"
	watcherusecase "github.com/agora-labs/gatekeeper/watcher/usecase"
)

// GatekeeperServer defines an interface for the gatekeeper service.
// It wires the event watcher and the reconciliation engine together and
// exposes the link and system endpoints.
type GatekeeperServer interface {
	GetIdentityStore() mvc.IdentityStore
	GetGroupStore() mvc.GroupStore
	GetReconciler() mvc.ReconcilerUsecase
	GetLogger() log.Logger
	Shutdown(context.Context) error
	Start(context.Context) error
}

type gatekeeperServer struct {
	repository *identityrepo.Repository
	reconciler mvc.ReconcilerUsecase
	watcher    mvc.WatcherUsecase

	e             *echo.Echo
	serverAddress string

	logger log.Logger
}

// GetIdentityStore implements GatekeeperServer.
func (g *gatekeeperServer) GetIdentityStore() mvc.IdentityStore {
	return g.repository
}

// GetGroupStore implements GatekeeperServer.
func (g *gatekeeperServer) GetGroupStore() mvc.GroupStore {
	return g.repository
}

// GetReconciler implements GatekeeperServer.
func (g *gatekeeperServer) GetReconciler() mvc.ReconcilerUsecase {
	return g.reconciler
}

// GetLogger implements GatekeeperServer.
func (g *gatekeeperServer) GetLogger() log.Logger {
	return g.logger
}

// Shutdown implements GatekeeperServer.
func (g *gatekeeperServer) Shutdown(ctx context.Context) error {
	if err := g.e.Shutdown(ctx); err != nil {
		return err
	}

	return g.repository.Close()
}

// Start implements GatekeeperServer.
func (g *gatekeeperServer) Start(ctx context.Context) error {
	if err := g.watcher.Start(ctx); err != nil {
		return err
	}

	g.logger.Info("Starting gatekeeper server", zap.String("address", g.serverAddress))

	return g.e.Start(g.serverAddress)
}

// NewGatekeeperServer creates a new gatekeeper server.
func NewGatekeeperServer(ctx context.Context, config domain.Config, logger log.Logger) (GatekeeperServer, error) {
	// Setup echo server
	e := echo.New()
	if config.CORS != nil {
		middleware := middleware.InitMiddleware(config.CORS)
		e.Use(middleware.CORS)
		e.Use(middleware.InstrumentMiddleware)
	}

	// Durable identity/group store.
	logger.Info("Opening identity store", zap.String("db_path", config.StoragePath))
	repository, err := identityrepo.New(config.StoragePath)
	if err != nil {
		return nil, err
	}

	// Ledger node connection. Must be a websocket endpoint since the
	// watcher needs log subscriptions.
	logger.Info("Dialing ledger node", zap.String("endpoint", config.ChainNodeEndpoint))
	chainClient, err := ethclient.DialContext(ctx, config.ChainNodeEndpoint)
	if err != nil {
		return nil, err
	}

	oracle, err := ledgerusecase.NewLedgerOracle(repository, func(group domain.Group) (ledgerclient.Client, error) {
		return ledgerclient.NewClient(chainClient, group)
	})
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(config.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	groupAdmin := telegramadmin.NewTelegramGroupAdmin(bot, config.Telegram, logger)

	reconciler := reconcilerusecase.NewReconcilerUsecase(config.Reconciler, repository, repository, oracle, groupAdmin, logger)

	watcher := watcherusecase.NewWatcherUsecase(config.Watcher, repository, repository, oracle, reconciler, logger)

	// HTTP handlers
	linkerhttpdelivery.NewLinkerHandler(e, config.Linker, repository, repository, oracle, reconciler, logger)
	systemhttpdelivery.NewSystemHandler(e, config, logger, repository, chainClient)

	return &gatekeeperServer{
		repository:    repository,
		reconciler:    reconciler,
		watcher:       watcher,
		e:             e,
		serverAddress: config.ServerAddress,
		logger:        logger,
	}, nil
}
