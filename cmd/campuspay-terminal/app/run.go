package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/adapter/backend"
	"github.com/aq2208/campuspay-terminal/internal/adapter/cache"
	"github.com/aq2208/campuspay-terminal/internal/adapter/grpc"
	api "github.com/aq2208/campuspay-terminal/internal/adapter/http"
	"github.com/aq2208/campuspay-terminal/internal/adapter/http/middleware"
	"github.com/aq2208/campuspay-terminal/internal/adapter/kafka"
	"github.com/aq2208/campuspay-terminal/internal/adapter/notify"
	"github.com/aq2208/campuspay-terminal/internal/adapter/observ"
	"github.com/aq2208/campuspay-terminal/internal/adapter/queue"
	"github.com/aq2208/campuspay-terminal/internal/adapter/repo"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
	"github.com/aq2208/campuspay-terminal/internal/security"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

const shutdownGrace = 10 * time.Second

type App struct {
	Router *gin.Engine

	cfg      configs.Config
	confirm  *usecase.ConfirmPayment
	sessions *session.Manager
	gaps     *queue.Router
	orders   *kafka.Consumer
}

// InitWithConfig wires the terminal. Optional integrations are enabled by
// their address being configured; without them the terminal runs on
// in-process stores and logs gaps instead of publishing them.
func InitWithConfig(ctx context.Context, cfg configs.Config, log *slog.Logger) (*App, func(), error) {
	var closers []func()
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		})
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// crypto keys (optional)
	var cs security.CryptoService
	cm, err := security.NewCryptoMaterial(cfg)
	switch {
	case errors.Is(err, security.ErrNoKeyMaterial):
		log.Warn("no crypto key configured; session kept in memory and gaps unsigned")
	case err != nil:
		return fail(fmt.Errorf("crypto material: %w", err))
	default:
		if cs, err = security.NewCryptoService(cm); err != nil {
			return fail(fmt.Errorf("crypto service: %w", err))
		}
	}

	// init database (optional)
	var journal *repo.MySQLAttemptJournal
	if cfg.MySQL.DSN != "" {
		db, err := openMySQL(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		journal = repo.NewMySQLAttemptJournal(db)
		if err := journal.Migrate(ctx); err != nil {
			return fail(fmt.Errorf("migrate journal: %w", err))
		}
	} else {
		log.Warn("mysql not configured; attempts are only logged")
	}

	// init redis (optional)
	set := &usecase.Settlement{
		Metrics: observ.NewFlowMetrics(prometheus.DefaultRegisterer),
		Log:     log.With("component", "settlement"),
	}
	if journal != nil {
		set.Journal = journal
	}
	var tokens session.Store
	// the kafka consumer and the reconcile endpoint share whichever ledger guards payments
	var ledger interface {
		usecase.SettlementLedger
		api.LedgerClearer
	} = usecase.NewMemoryLedger()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		ledger = cache.NewRedisSettlementLedger(rdb, cfg.Settlement.LedgerTTL)
		set.Locks = cache.NewRedisLockStore(rdb, cfg.Settlement.LockTTL)
		if cs != nil {
			tokens = cache.NewRedisTokenStore(rdb, cs, cfg.App.Name)
		}
	} else {
		log.Warn("redis not configured; order locks and settlement ledger are per process")
	}
	set.Ledger = ledger

	// operator notifier
	var notifier interface {
		usecase.GapNotifier
		usecase.ReconciliationSink
	} = notify.NewLogNotifier(log.With("component", "notify"))
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fail(fmt.Errorf("telegram: %w", err))
		}
		notifier = tg
	}
	set.Gaps = notifier

	a := &App{cfg: cfg}

	// init rabbitmq: publish gaps, consume them for the operator
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })

		pubCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		producer, err := queue.NewRabbitProducer(pubCh, queue.Topology{
			Exchange:   cfg.Rabbit.Exchange,
			RoutingKey: cfg.Rabbit.RoutingKey,
			Queue:      cfg.Rabbit.Queue,
		}, cs)
		if err != nil {
			return fail(err)
		}
		set.Gaps = producer

		subCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		a.gaps = queue.NewRouter(subCh,
			queue.WithPrefetch(cfg.Rabbit.Prefetch),
			queue.WithRequeue(!cfg.Rabbit.DeadLetter),
			queue.WithLogger(log.With("component", "queue")))
		a.gaps.Register(cfg.Rabbit.Queue, queue.NewGapHandler(cs, notifier))
	}

	// register kafka-listener: backend order events keep the ledger honest
	if len(cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.App.Name)
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		klog := log.With("component", "kafka")
		a.orders = kafka.NewConsumer(grp, []string{cfg.Kafka.TopicOrders}, kafka.NewOrderPaidHandler(ledger, klog).Handle, klog)
	}

	// NFC reader through the bridge (optional)
	var drv nfc.Driver
	if cfg.ReaderBridge.Target != "" {
		conn, closeConn, err := InitReaderBridgeConn(cfg)
		if err != nil {
			return fail(fmt.Errorf("reader bridge: %w", err))
		}
		closers = append(closers, closeConn)
		drv = grpc.NewReaderBridge(conn, cfg.ReaderBridge.Timeout, cfg.App.Name)
	}
	reader := nfc.NewReader(drv, log.With("component", "nfc"))

	// backend session
	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	a.sessions = session.NewManager(client, tokens, log.With("component", "session"))
	if err := a.sessions.Restore(ctx); err != nil {
		log.Warn("session not restored", "error", err)
	}

	// init use cases + handlers + routers + middleware
	ulog := log.With("component", "usecase")
	orders := usecase.NewOrders(client)
	a.confirm = usecase.NewConfirmPayment(reader, client, set, ulog)

	var gapJournal api.GapJournal
	if journal != nil {
		gapJournal = journal
	}

	h := api.Handlers{
		Tokens:    api.NewTokenHandler(cfg, security.NewOperators(cfg.Security.Operators)),
		Session:   api.NewSessionHandler(a.sessions, client),
		Wallet:    api.NewWalletHandler(a.sessions, usecase.NewWallet(client, client), usecase.NewSendMoney(client, ulog)),
		Catalog:   api.NewCatalogHandler(a.sessions, client),
		Orders:    api.NewOrderHandler(a.sessions, orders, usecase.NewPlaceOrder(client, ulog), usecase.NewPayOrder(client, set, ulog)),
		NFC:       api.NewNFCHandler(a.sessions, orders, a.confirm),
		Profile:   api.NewProfileHandler(a.sessions, usecase.NewProfile(client)),
		Reconcile: api.NewReconcileHandler(gapJournal, ledger),
	}
	a.Router = api.NewRouter(h, middleware.NewAuthz(cfg), log.With("component", "http"))

	return a, cleanup, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// Run serves HTTP and the background consumers until ctx is done, then shuts
// the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	// a missing reader is not fatal; reads answer 503 until it is back
	_ = a.confirm.StartReader(ctx)

	srv := &http.Server{
		Addr:         a.cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.gaps != nil {
		if err := a.gaps.Start(gctx); err != nil {
			return fmt.Errorf("start gap consumer: %w", err)
		}
		g.Go(func() error {
			a.gaps.Wait()
			return nil
		})
	}
	if a.orders != nil {
		g.Go(func() error { return a.orders.Start(gctx) })
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
