// Package config loads layered configuration: a base YAML file, an optional
// environment overlay, then PIZZERIA_-prefixed environment variables
// (nested keys with __, e.g. PIZZERIA_DATABASE__HOST).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
)

type Config struct {
	App struct {
		Name    string `koanf:"name"`
		LogFile string `koanf:"log_file"`
		DataDir string `koanf:"data_dir"`
	} `koanf:"app"`

	HTTP struct {
		OrderAddr   string `koanf:"order_addr"`
		KitchenAddr string `koanf:"kitchen_addr"`
	} `koanf:"http"`

	Database struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Database string `koanf:"database"`
	} `koanf:"database"`

	RabbitMQ struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		VHost    string `koanf:"vhost"`
	} `koanf:"rabbitmq"`

	Business Business `koanf:"business"`

	Submission struct {
		AttemptTimeout time.Duration `koanf:"attempt_timeout"`
		MaxRetries     int           `koanf:"max_retries"`
		RetryInterval  time.Duration `koanf:"retry_interval"`
	} `koanf:"submission"`

	Kitchen struct {
		Retention  time.Duration `koanf:"retention"`
		PollEvery  time.Duration `koanf:"poll_every"`
		Prefetch   int           `koanf:"prefetch"`
		WorkerName string        `koanf:"worker_name"`
	} `koanf:"kitchen"`

	History struct {
		CheckoutCap int `koanf:"checkout_cap"`
		TableCap    int `koanf:"table_cap"`
	} `koanf:"history"`
}

// Business carries the pricing and promotion rules. Monetary values are
// declared as floats in YAML and converted to decimals once, at load time.
type Business struct {
	MenuFile          string       `koanf:"menu_file"`
	TaxRatePercent    float64      `koanf:"tax_rate_percent"`
	DeliveryBaseCost  float64      `koanf:"delivery_base_cost"`
	FreeDeliveryAbove float64      `koanf:"free_delivery_above"`
	FreeDistanceKm    float64      `koanf:"free_distance_km"`
	PerKmSurcharge    float64      `koanf:"per_km_surcharge"`
	Promotions        []Promotion  `koanf:"promotions"`
	Combos            []Combo      `koanf:"combos"`
	DailyOffers       []DailyOffer `koanf:"daily_offers"`
}

type Promotion struct {
	ID            string   `koanf:"id"`
	Code          string   `koanf:"code"`
	Kind          string   `koanf:"kind"`
	Value         float64  `koanf:"value"`
	MinOrder      float64  `koanf:"min_order"`
	Validity      string   `koanf:"validity"` // "2024-06-01/2024-08-31"
	EligibleIDs   []string `koanf:"eligible_product_ids"`
	FreeProductID string   `koanf:"free_product_id"`
	Available     bool     `koanf:"available"`
}

type Combo struct {
	ID              string   `koanf:"id"`
	Name            string   `koanf:"name"`
	DiscountPercent int      `koanf:"discount_percent"`
	ProductIDs      []string `koanf:"product_ids"`
}

type DailyOffer struct {
	ProductID       string `koanf:"product_id"`
	Weekday         string `koanf:"weekday"`
	DiscountPercent int    `koanf:"discount_percent"`
}

func Load(path, overlay string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if overlay != "" {
		_ = k.Load(file.Provider(overlay), yaml.Parser())
	}
	if err := k.Load(env.Provider("PIZZERIA_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "PIZZERIA_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults mirror the values the original deployment shipped with.
func Defaults() *Config {
	cfg := &Config{}
	cfg.App.Name = "pizzeria-system"
	cfg.App.DataDir = "./data"
	cfg.HTTP.OrderAddr = ":3000"
	cfg.HTTP.KitchenAddr = ":3002"
	cfg.Database.Port = 5432
	cfg.RabbitMQ.Port = 5672
	cfg.RabbitMQ.VHost = "/"
	cfg.Business.TaxRatePercent = 0 // prices are tax-inclusive
	cfg.Business.DeliveryBaseCost = 2.50
	cfg.Business.FreeDeliveryAbove = 25.00
	cfg.Business.FreeDistanceKm = 5
	cfg.Business.PerKmSurcharge = 0.50
	cfg.Submission.AttemptTimeout = 10 * time.Second
	cfg.Submission.MaxRetries = 5
	cfg.Submission.RetryInterval = 5 * time.Second
	cfg.Kitchen.Retention = 24 * time.Hour
	cfg.Kitchen.PollEvery = 30 * time.Second
	cfg.Kitchen.Prefetch = 1
	cfg.History.CheckoutCap = 10
	cfg.History.TableCap = 50
	return cfg
}

func (c *Config) Validate() error {
	if c.HTTP.OrderAddr == "" || c.HTTP.KitchenAddr == "" {
		return fmt.Errorf("http addresses incomplete")
	}
	for _, p := range c.Business.Promotions {
		switch domain.PromotionKind(p.Kind) {
		case domain.PromoPercent, domain.PromoFixed, domain.PromoFreeDelivery, domain.PromoFreeItem:
		default:
			return fmt.Errorf("promotion %q: unknown kind %q", p.ID, p.Kind)
		}
	}
	return nil
}

// DomainPromotions converts the configured promotions into their domain form.
func (c *Config) DomainPromotions() ([]domain.Promotion, error) {
	out := make([]domain.Promotion, 0, len(c.Business.Promotions))
	for _, p := range c.Business.Promotions {
		dp := domain.Promotion{
			ID:            p.ID,
			Code:          p.Code,
			Kind:          domain.PromotionKind(p.Kind),
			Value:         decimal.NewFromFloat(p.Value),
			MinOrder:      decimal.NewFromFloat(p.MinOrder),
			EligibleIDs:   p.EligibleIDs,
			FreeProductID: p.FreeProductID,
			Available:     p.Available,
		}
		if p.Validity != "" {
			from, to, err := parseValidity(p.Validity)
			if err != nil {
				return nil, fmt.Errorf("promotion %q: %w", p.ID, err)
			}
			dp.ValidFrom, dp.ValidTo = from, to
		}
		out = append(out, dp)
	}
	return out, nil
}

func (c *Config) DomainDailyOffers() []domain.DailyOffer {
	out := make([]domain.DailyOffer, 0, len(c.Business.DailyOffers))
	for _, o := range c.Business.DailyOffers {
		out = append(out, domain.DailyOffer{
			ProductID:       o.ProductID,
			Weekday:         strings.ToLower(o.Weekday),
			DiscountPercent: o.DiscountPercent,
		})
	}
	return out
}

func (c *Config) DomainCombos() []domain.Combo {
	out := make([]domain.Combo, 0, len(c.Business.Combos))
	for _, cb := range c.Business.Combos {
		out = append(out, domain.Combo{
			ID:              cb.ID,
			Name:            cb.Name,
			DiscountPercent: cb.DiscountPercent,
			ProductIDs:      cb.ProductIDs,
		})
	}
	return out
}

// parseValidity reads a "YYYY-MM-DD/YYYY-MM-DD" window. The end date is
// inclusive: the window closes at the end of that day.
func parseValidity(s string) (*time.Time, *time.Time, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("validity %q: want start/end", s)
	}
	from, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("validity start: %w", err)
	}
	to, err := time.Parse("2006-01-02", parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("validity end: %w", err)
	}
	to = to.Add(24*time.Hour - time.Nanosecond)
	return &from, &to, nil
}
