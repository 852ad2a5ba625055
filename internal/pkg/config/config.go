package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 进程唯一配置。所有默认值在 Load 时一次性补齐，
// 业务代码不允许再自行猜默认值。
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Jaeger   JaegerConfig   `yaml:"jaeger"`
	Nacos    NacosConfig    `yaml:"nacos"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Billing  BillingConfig  `yaml:"billing"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	OrderConfirmedTopic string   `yaml:"order_confirmed_topic"`
	OrderEventsTopic    string   `yaml:"order_events_topic"`
	BillingGroup        string   `yaml:"billing_group"`
	PushGroup           string   `yaml:"push_group"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Port      uint64 `yaml:"port"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

// CheckoutConfig 下单链路参数。
type CheckoutConfig struct {
	ReservationTTL       time.Duration `yaml:"reservation_ttl"`
	SlotHoldTTL          time.Duration `yaml:"slot_hold_ttl"`
	WholesaleMinSubtotal float64       `yaml:"wholesale_min_subtotal"`
	PaymentGatewayURL    string        `yaml:"payment_gateway_url"`
	PaymentFeeRate       float64       `yaml:"payment_fee_rate"`
}

type DeliveryConfig struct {
	// Holidays 为 yyyy-mm-dd 字符串，生成档期时跳过。
	Holidays []string `yaml:"holidays"`
}

// BillingConfig 佣金与发票默认参数。
type BillingConfig struct {
	DefaultTaxRate        float64            `yaml:"default_tax_rate"`
	TaxRatesByCategory    map[string]float64 `yaml:"tax_rates_by_category"`
	InvoiceDueDays        int                `yaml:"invoice_due_days"`
	DefaultCommissionType string             `yaml:"default_commission_type"`
	DefaultCommissionRate float64            `yaml:"default_commission_rate"`
}

var (
	current Config
	once    sync.Once
)

// Load 读取 yaml 配置并用环境变量覆盖，只允许在进程启动时调用一次。
func Load(path string) (*Config, error) {
	var loadErr error
	once.Do(func() {
		cfg := Config{}
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				loadErr = errors.Wrapf(err, "read config %s", path)
				return
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				loadErr = errors.Wrap(err, "parse config yaml")
				return
			}
		}
		applyEnv(&cfg)
		applyDefaults(&cfg)
		current = cfg
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &current, nil
}

// Get 返回已加载的配置。必须在 Load 之后调用。
func Get() *Config {
	return &current
}

func applyEnv(cfg *Config) {
	cfg.Service.Name = getEnv("SERVICE_NAME", cfg.Service.Name)
	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Jaeger.Endpoint)
	cfg.Nacos.Addr = getEnv("NACOS_ADDR", cfg.Nacos.Addr)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 8080
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "info"
	}
	if cfg.MySQL.DSN == "" {
		cfg.MySQL.DSN = "root:root@tcp(localhost:3306)/vivero?charset=utf8mb4&parseTime=True&loc=Local"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.OrderConfirmedTopic == "" {
		cfg.Kafka.OrderConfirmedTopic = "order.confirmed"
	}
	if cfg.Kafka.OrderEventsTopic == "" {
		cfg.Kafka.OrderEventsTopic = "order.events"
	}
	if cfg.Kafka.BillingGroup == "" {
		cfg.Kafka.BillingGroup = "billing-worker"
	}
	if cfg.Kafka.PushGroup == "" {
		cfg.Kafka.PushGroup = "push-gateway"
	}
	if cfg.Jaeger.Endpoint == "" {
		cfg.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}
	if cfg.Nacos.Port == 0 {
		cfg.Nacos.Port = 8848
	}
	if cfg.Nacos.Group == "" {
		cfg.Nacos.Group = "DEFAULT_GROUP"
	}
	if cfg.Checkout.ReservationTTL <= 0 {
		cfg.Checkout.ReservationTTL = 30 * time.Minute
	}
	if cfg.Checkout.SlotHoldTTL <= 0 {
		cfg.Checkout.SlotHoldTTL = 30 * time.Minute
	}
	if cfg.Checkout.WholesaleMinSubtotal <= 0 {
		cfg.Checkout.WholesaleMinSubtotal = 500000
	}
	if cfg.Checkout.PaymentFeeRate <= 0 {
		cfg.Checkout.PaymentFeeRate = 0.029
	}
	if cfg.Billing.DefaultTaxRate <= 0 {
		cfg.Billing.DefaultTaxRate = 0.19
	}
	if cfg.Billing.InvoiceDueDays <= 0 {
		cfg.Billing.InvoiceDueDays = 30
	}
	if cfg.Billing.DefaultCommissionType == "" {
		cfg.Billing.DefaultCommissionType = "percentage"
	}
	if cfg.Billing.DefaultCommissionRate <= 0 {
		cfg.Billing.DefaultCommissionRate = 0.10
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
