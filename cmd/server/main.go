package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/splitledger-backend/internal/adapter/grpc"
	"github.com/simaogato/splitledger-backend/internal/adapter/messaging"
	"github.com/simaogato/splitledger-backend/internal/adapter/repository/memory"
	"github.com/simaogato/splitledger-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/splitledger-backend/internal/domain"
	"github.com/simaogato/splitledger-backend/internal/platform/config"
	"github.com/simaogato/splitledger-backend/internal/platform/logger"
	"github.com/simaogato/splitledger-backend/internal/usecase/expense"
	"github.com/simaogato/splitledger-backend/internal/usecase/group"
	"github.com/simaogato/splitledger-backend/internal/usecase/ledger"
	"github.com/simaogato/splitledger-backend/internal/usecase/seeder"
	"github.com/simaogato/splitledger-backend/internal/usecase/settlement"
)

const warmConcurrency = 8

type repositories struct {
	groups   domain.GroupRepository
	expenses domain.ExpenseRepository
	payments domain.PaymentRepository
	close    func() error
}

type publisher interface {
	domain.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup storage
	repos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	// 2. Event publishing
	events, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer events.Close()

	// 3. Ledgers and services (use cases)
	ledgers := ledger.NewRegistry(ledger.RepositoryLoader(repos.groups, repos.expenses, repos.payments))
	groupService := group.NewGroupService(repos.groups, ledgers, log)
	expenseService := expense.NewExpenseService(repos.groups, repos.expenses, ledgers, events, log)
	settlementService := settlement.NewSettlementService(repos.groups, repos.payments, ledgers, events, log)

	if cfg.SeedDemo {
		created, err := seeder.NewDemoSeeder(repos.groups).Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed demo group: %w", err)
		}
		log.Info("demo group ready", zap.Stringer("group_id", seeder.DemoGroupID), zap.Bool("created", created))
	}

	groupIDs, err := repos.groups.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	if err := ledgers.Warm(ctx, groupIDs, warmConcurrency); err != nil {
		return err
	}
	log.Info("ledgers loaded", zap.Int("groups", ledgers.Len()))

	// 4. gRPC server
	interceptors := []grpclib.UnaryServerInterceptor{
		grpcadapter.LoggingInterceptor(log),
		grpcadapter.AuthInterceptor(cfg.APIToken),
	}
	if cfg.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("invalid rate limit: %w", err)
		}
		interceptors = append(interceptors, grpcadapter.RateLimitInterceptor(limiter.New(limitermemory.NewStore(), rate), log))
	}
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(interceptors...))

	grpcadapter.RegisterSplitLedgerServer(grpcServer, grpcadapter.NewServer(groupService, expenseService, settlementService))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr(), err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.ListenAddr()), zap.String("backend", cfg.DataBackend))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			return fmt.Errorf("failed to serve gRPC server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		healthServer.Shutdown()
		shutdown(grpcServer, cfg.ShutdownTimeout)
		log.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

// shutdown stops the server gracefully, forcing it after timeout
func shutdown(grpcServer *grpclib.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		grpcServer.Stop()
	}
}

func openRepositories(cfg *config.Config, log *zap.Logger) (*repositories, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			groups:   store.Groups(),
			expenses: store.Expenses(),
			payments: store.Payments(),
			close:    func() error { return nil },
		}, nil

	case config.BackendPostgres, config.BackendSQLite:
		var (
			db  *sqlstore.DB
			err error
		)
		if cfg.DataBackend == config.BackendPostgres {
			// Give a containerised Postgres time to come up
			time.Sleep(cfg.DBStartDelay)
			db, err = sqlstore.NewDB(cfg.DBConnStr)
		} else {
			db, err = sqlstore.NewSQLiteDB(cfg.SQLitePath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database ready", zap.String("driver", db.Driver))

		return &repositories{
			groups:   sqlstore.NewGroupRepository(db),
			expenses: sqlstore.NewExpenseRepository(db),
			payments: sqlstore.NewPaymentRepository(db),
			close:    db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend %q", cfg.DataBackend)
	}
}

func openPublisher(cfg *config.Config, log *zap.Logger) (publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("AMQP_URL not set, ledger events are not published")
		return messaging.NewNoopPublisher(log), nil
	}

	p, err := messaging.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	log.Info("publishing ledger events", zap.String("exchange", cfg.AMQPExchange))
	return p, nil
}
