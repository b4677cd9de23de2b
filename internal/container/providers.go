package container

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/application/dispatcher"
	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/application/service"
	"github.com/garyjia/employee-requests/internal/config"
	"github.com/garyjia/employee-requests/internal/domain/requests"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
	"github.com/garyjia/employee-requests/internal/infrastructure/external/lark"
	"github.com/garyjia/employee-requests/internal/infrastructure/persistence/repository"
	"github.com/garyjia/employee-requests/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/employee-requests/migrations"
	"github.com/garyjia/employee-requests/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations.
// Migrations come from cfg.MigrationsDir when set, otherwise from the embedded set.
func ProvideDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	var migrationFS fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		migrationFS = os.DirFS(cfg.MigrationsDir)
	}
	if err := database.NewMigrator(conn, logger).RunMigrations(migrationFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Requests:     repository.NewRequestRepository(db, logger),
		Permissions:  repository.NewPermissionRepository(db, logger),
		Availability: repository.NewAvailabilityRepository(db, logger),
	}
}

// ProvideEngine builds the workflow engine with the resolvers of every request kind.
// The engine clock runs in the configured business timezone.
func ProvideEngine(cfg config.WorkflowConfig, availability port.AssetAvailability) (*workflow.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid workflow timezone: %w", err)
	}

	rules := requests.DefaultConfig()
	if cfg.DefaultInstallments > 0 {
		rules.DefaultInstallments = cfg.DefaultInstallments
	}
	if cfg.MaxInstallments > 0 {
		rules.MaxInstallments = cfg.MaxInstallments
	}

	return workflow.NewEngine(
		requests.NewResolvers(rules, availability),
		workflow.WithClock(func() time.Time { return time.Now().In(loc) }),
	), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	)
}

// ProvideNotifier returns a Lark notifier, or a log-only notifier when Lark is disabled.
func ProvideNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled {
		logger.Info("Lark notifications disabled, logging notifications only")
		return lark.NewLogNotifier(logger)
	}

	client := lark.NewClient(lark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}, logger)
	return lark.NewNotifier(lark.NewMessenger(client, cfg.ReceiveIDType, logger))
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     *workflow.Engine
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the notifier to events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	notifications := service.NewNotificationService(
		deps.Repos.Requests,
		deps.Repos.Permissions,
		deps.Notifier,
		deps.Engine,
		serviceLogger,
	)
	if deps.Dispatcher != nil && deps.Notifier != nil {
		notifications.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Requests: service.NewRequestService(
			deps.Repos.Requests,
			deps.Repos.Permissions,
			deps.Engine,
			deps.TxManager,
			deps.Dispatcher,
			serviceLogger,
		),
		Notifications: notifications,
	}, nil
}
