package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"VISO_Collective/internal/config"
	"VISO_Collective/internal/gateway"
	"VISO_Collective/internal/handler"
	"VISO_Collective/internal/middleware"
	"VISO_Collective/internal/pkg"
	"VISO_Collective/internal/repository/airtable"
	"VISO_Collective/internal/repository/memory"
	"VISO_Collective/internal/repository/mysql"
	rdb "VISO_Collective/internal/repository/redis"
	"VISO_Collective/internal/router"
	"VISO_Collective/internal/service"
	"VISO_Collective/internal/store"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := pkg.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	serviceName := ""
	if cfg.Tracing.Enabled {
		shutdown, err := initTracing(ctx, cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()
		serviceName = cfg.Tracing.Service
	}

	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}

	// 写入后的事件分发
	pubs := service.Publishers{service.LogPublisher{Log: log}}
	var producer *pkg.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
	}
	if cfg.Outbox.Enabled {
		outbox := &mysql.OutboxRepository{DB: db}
		pubs = append(pubs, service.OutboxPublisher{Repo: outbox})

		sender := service.LogSender(log)
		if producer != nil {
			sender = service.KafkaSender(producer)
		}
		// 在 producer 关闭前等投递器退出
		waitRelayer := runInBackground(ctx, service.NewOutboxRelayer(outbox, sender, log).Run)
		defer waitRelayer()
	} else if producer != nil {
		pubs = append(pubs, service.KafkaPublisher{Sender: producer})
	}
	if cfg.SMTP.Host != "" && len(cfg.Notify.Moderators) > 0 {
		mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		pubs = append(pubs, service.ModeratorMailer{Mailer: mailer, Moderators: cfg.Notify.Moderators})
	}

	gw := gateway.New(st, gateway.WithPublisher(pubs), gateway.WithLogger(log))

	tokens, err := pkg.NewIdentityTokens(cfg.Auth.Secret)
	if err != nil {
		return err
	}

	// redis 未配置时不支持登出吊销
	var (
		checker middleware.RevocationChecker
		revoker handler.Revoker
	)
	if cfg.Redis.Addr != "" {
		client, err := rdb.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sessions := &rdb.SessionRepository{Client: client}
		checker, revoker = sessions, sessions
	} else {
		log.Warn("redis not configured, sign-out revocation disabled")
	}

	r := router.InitRouter(router.Handlers{
		Members: handler.NewMemberHandler(service.NewMemberService(gw), log),
		Posts:   handler.NewPostHandler(service.NewPostService(gw), log),
		Events:  handler.NewEventHandler(service.NewEventService(gw), log),
		Auth:    handler.NewAuthHandler(revoker, log),
	}, router.Options{
		Identity:    middleware.Identity(tokens, checker, log),
		Log:         log,
		ServiceName: serviceName,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runInBackground 启动后台任务，返回的函数取消任务并等待其退出
func runInBackground(ctx context.Context, run func(context.Context)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// openStore 按 store.driver 选择后端，gorm 后端同时返回 db 供 outbox 使用
func openStore(cfg *config.Config) (store.Store, *gorm.DB, error) {
	switch cfg.Store.Driver {
	case config.DriverAirtable:
		return airtable.NewClient(airtable.Config{
			APIKey:   cfg.Store.Airtable.APIKey,
			BaseID:   cfg.Store.Airtable.BaseID,
			Endpoint: cfg.Store.Airtable.Endpoint,
		}, nil), nil, nil
	case config.DriverMySQL, config.DriverPostgres, config.DriverSQLite:
		db, err := mysql.InitDB(cfg.Store.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := mysql.Migrate(db); err != nil {
			return nil, nil, err
		}
		return mysql.NewRecordRepository(db), db, nil
	case config.DriverMemory:
		return memory.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
