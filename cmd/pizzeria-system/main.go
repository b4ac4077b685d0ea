package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"

	kitchenapp "pizzeria-system/internal/app/kitchen"
	"pizzeria-system/internal/app/order"
	"pizzeria-system/internal/cart"
	"pizzeria-system/internal/checkout"
	"pizzeria-system/internal/common/httpx"
	"pizzeria-system/internal/common/logger"
	"pizzeria-system/internal/config"
	"pizzeria-system/internal/connections/database"
	"pizzeria-system/internal/connections/rabbitmq"
	"pizzeria-system/internal/history"
	"pizzeria-system/internal/kitchen"
	"pizzeria-system/internal/menu"
	"pizzeria-system/internal/outbox"
	"pizzeria-system/internal/pricing"
	"pizzeria-system/internal/storage"
	"pizzeria-system/internal/submit"
)

func main() {
	mode := flag.String("mode", "", "order-service | kitchen-service")
	cfgPath := flag.String("config", "configs/base.yaml", "path to YAML config")
	overlay := flag.String("config-overlay", "", "optional overlay YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *overlay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	lg := logger.Init(*mode, cfg.App.LogFile)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "order-service":
		if err := runOrderService(ctx, cfg, lg); err != nil {
			lg.Error("fatal", "error", err.Error())
			os.Exit(1)
		}
	case "kitchen-service":
		if err := runKitchenService(ctx, cfg, lg); err != nil {
			lg.Error("fatal", "error", err.Error())
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: order-service | kitchen-service")
		os.Exit(2)
	}
}

// openStore prefers Postgres when configured, falls back to the file store,
// and degrades to memory as the last resort so the flow never hard-fails on
// persistence.
func openStore(ctx context.Context, cfg *config.Config, lg *slog.Logger) storage.Store {
	if cfg.Database.Host != "" {
		pool, err := database.Connect(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
		})
		if err == nil {
			store, serr := storage.NewPostgres(ctx, pool)
			if serr == nil {
				lg.Info("store_ready", "kind", "postgres")
				return store
			}
			lg.Error("store_init_failed", "kind", "postgres", "error", serr.Error())
		} else {
			lg.Error("db_connect_failed", "error", err.Error())
		}
	}
	store, err := storage.NewFile(filepath.Join(cfg.App.DataDir, "store"))
	if err != nil {
		lg.Error("store_init_failed", "kind", "file", "error", err.Error())
		return storage.NewMemory()
	}
	lg.Info("store_ready", "kind", "file")
	return store
}

func buildEngine(cfg *config.Config, m *menu.Menu) (*pricing.Engine, error) {
	promos, err := cfg.DomainPromotions()
	if err != nil {
		return nil, err
	}
	rules := pricing.Rules{
		TaxRatePercent:    decimal.NewFromFloat(cfg.Business.TaxRatePercent),
		DeliveryBaseCost:  decimal.NewFromFloat(cfg.Business.DeliveryBaseCost),
		FreeDeliveryAbove: decimal.NewFromFloat(cfg.Business.FreeDeliveryAbove),
		FreeDistanceKm:    decimal.NewFromFloat(cfg.Business.FreeDistanceKm),
		PerKmSurcharge:    decimal.NewFromFloat(cfg.Business.PerKmSurcharge),
		Promotions:        promos,
		Combos:            cfg.DomainCombos(),
		DailyOffers:       cfg.DomainDailyOffers(),
	}
	return pricing.New(rules, m), nil
}

func loadMenu(cfg *config.Config, lg *slog.Logger) *menu.Menu {
	if cfg.Business.MenuFile == "" {
		return menu.Empty()
	}
	m, err := menu.Load(cfg.Business.MenuFile)
	if err != nil {
		lg.Error("menu_load_failed", "file", cfg.Business.MenuFile, "error", err.Error())
		return menu.Empty()
	}
	return m
}

func runOrderService(ctx context.Context, cfg *config.Config, lg *slog.Logger) error {
	store := openStore(ctx, cfg, lg)
	m := loadMenu(cfg, lg)
	engine, err := buildEngine(cfg, m)
	if err != nil {
		return err
	}

	mq, err := rabbitmq.Dial(rabbitmq.Config{
		Host:     cfg.RabbitMQ.Host,
		Port:     cfg.RabbitMQ.Port,
		User:     cfg.RabbitMQ.User,
		Password: cfg.RabbitMQ.Password,
		VHost:    cfg.RabbitMQ.VHost,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	box, err := outbox.Open(filepath.Join(cfg.App.DataDir, "outbox"))
	if err != nil {
		return err
	}
	defer box.Close()

	carts := cart.NewService(store, logger.New("cart"))
	hist := history.NewService(store, logger.New("history"), cfg.History.CheckoutCap, cfg.History.TableCap)
	submitter := submit.NewService(
		submit.NewAMQPSink(mq), box, carts, hist, store, logger.New("submit"),
		submit.Config{
			AttemptTimeout: cfg.Submission.AttemptTimeout,
			MaxRetries:     cfg.Submission.MaxRetries,
			RetryInterval:  cfg.Submission.RetryInterval,
		})

	lg.Info("service_started", "service", "order-service", "addr", cfg.HTTP.OrderAddr)
	return order.Run(ctx, cfg.HTTP.OrderAddr, order.Deps{
		Log:       logger.New("order-http"),
		Carts:     carts,
		Menu:      m,
		Engine:    engine,
		Numbers:   checkout.NewStoreNumbers(store),
		Submitter: submitter,
		History:   hist,
	})
}

func runKitchenService(ctx context.Context, cfg *config.Config, lg *slog.Logger) error {
	store := openStore(ctx, cfg, lg)
	queue := kitchen.NewQueue(store, logger.New("kitchen"), cfg.Kitchen.Retention)

	mq, err := rabbitmq.Dial(rabbitmq.Config{
		Host:     cfg.RabbitMQ.Host,
		Port:     cfg.RabbitMQ.Port,
		User:     cfg.RabbitMQ.User,
		Password: cfg.RabbitMQ.Password,
		VHost:    cfg.RabbitMQ.VHost,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	workerName := cfg.Kitchen.WorkerName
	if workerName == "" {
		workerName, _ = os.Hostname()
	}
	worker := kitchenapp.NewWorker(mq, queue, logger.New("worker"), workerName, cfg.Kitchen.Prefetch)

	go func() {
		if err := worker.Consume(ctx); err != nil {
			lg.Error("consumer_stopped", "error", err.Error())
		}
	}()
	go kitchenapp.RunPurge(ctx, queue, cfg.Kitchen.PollEvery)

	dash := kitchenapp.NewDashboard(queue, logger.New("dashboard"))
	srv := httpx.New(cfg.HTTP.KitchenAddr, dash.Routes())
	lg.Info("service_started", "service", "kitchen-service", "addr", cfg.HTTP.KitchenAddr)
	return srv.Run(ctx)
}
