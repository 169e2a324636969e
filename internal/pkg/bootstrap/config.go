// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是服务的全部配置，先读 YAML 文件，再用环境变量覆盖
type Config struct {
	App      AppConfig      `yaml:"app"`
	Infra    InfraConfig    `yaml:"infra"`
	Carrier  CarrierConfig  `yaml:"carrier"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Shipment ShipmentConfig `yaml:"shipment"`
}

type AppConfig struct {
	Name            string        `yaml:"name"`
	Port            int           `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type InfraConfig struct {
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addrs string `yaml:"addrs"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers string `yaml:"brokers"`
		Topic   string `yaml:"topic"`
	} `yaml:"kafka"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Nacos struct {
		Addrs     string `yaml:"addrs"`
		Namespace string `yaml:"namespace"`
		Group     string `yaml:"group"`
	} `yaml:"nacos"`
	Zookeeper struct {
		Servers string `yaml:"servers"`
	} `yaml:"zookeeper"`
}

// CarrierConfig 承运商 API 的连接参数
type CarrierConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Email         string        `yaml:"email"`
	Password      string        `yaml:"password"`
	Token         string        `yaml:"token"` // 预先下发的 token，首次使用时直接采用
	Timeout       time.Duration `yaml:"timeout"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	RefreshBuffer time.Duration `yaml:"refresh_buffer"`
}

type WebhookConfig struct {
	Secret string `yaml:"secret"`
	// 为 true 且未配置 secret 时才接受无鉴权回调
	AllowUnauthenticated bool `yaml:"allow_unauthenticated"`
}

// ShipmentConfig 包裹尺寸默认值，单位 kg / cm
type ShipmentConfig struct {
	DefaultWeightKg float64 `yaml:"default_weight_kg"`
	WeightPerItemKg float64 `yaml:"weight_per_item_kg"`
	LengthCm        float64 `yaml:"length_cm"`
	BreadthCm       float64 `yaml:"breadth_cm"`
	HeightBaseCm    float64 `yaml:"height_base_cm"`
	HeightPerPairCm float64 `yaml:"height_per_pair_cm"`
	NominalWeightKg float64 `yaml:"nominal_weight_kg"`
}

var (
	currentConfig *Config
	configMu      sync.RWMutex
)

// DefaultConfig 返回所有字段的默认值
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "fulfillment-service"
	cfg.App.Port = 8090
	cfg.App.LogLevel = "info"
	cfg.App.ShutdownTimeout = 10 * time.Second
	cfg.Infra.Kafka.Topic = "fulfillment-events"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Carrier.BaseURL = "https://apiv2.shiprocket.in/v1/external"
	cfg.Carrier.Timeout = 20 * time.Second
	cfg.Carrier.TokenTTL = 240 * time.Hour
	cfg.Carrier.RefreshBuffer = time.Hour
	cfg.Shipment = ShipmentConfig{
		DefaultWeightKg: 0.5,
		WeightPerItemKg: 0.5,
		LengthCm:        30,
		BreadthCm:       25,
		HeightBaseCm:    5,
		HeightPerPairCm: 5,
		NominalWeightKg: 0.5,
	}
	return cfg
}

// Init 加载配置，失败时直接退出
func Init() *Config {
	cfg, err := LoadConfig(getEnv("CONFIG_FILE", "configs/config.yaml"))
	if err != nil {
		panic(err)
	}
	SetCurrentConfig(cfg)
	return cfg
}

// LoadConfig 读取 YAML 文件（文件不存在时只用默认值），然后应用环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	overrideString(&cfg.App.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.Infra.MySQL.DSN, "MYSQL_DSN")
	overrideString(&cfg.Infra.Redis.Addrs, "REDIS_ADDRS")
	overrideString(&cfg.Infra.Kafka.Brokers, "KAFKA_BROKERS")
	overrideString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	overrideString(&cfg.Infra.Nacos.Addrs, "NACOS_SERVER_ADDRS")
	overrideString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	overrideString(&cfg.Infra.Zookeeper.Servers, "ZK_SERVERS")
	overrideString(&cfg.Carrier.BaseURL, "CARRIER_BASE_URL")
	overrideString(&cfg.Carrier.Email, "CARRIER_EMAIL")
	overrideString(&cfg.Carrier.Password, "CARRIER_PASSWORD")
	overrideString(&cfg.Carrier.Token, "CARRIER_TOKEN")
	overrideString(&cfg.Webhook.Secret, "WEBHOOK_SECRET")
	if v := os.Getenv("WEBHOOK_ALLOW_UNAUTHENTICATED"); v != "" {
		cfg.Webhook.AllowUnauthenticated = strings.EqualFold(v, "true") || v == "1"
	}
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// GetCurrentConfig 返回当前生效的配置
func GetCurrentConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if currentConfig == nil {
		return DefaultConfig()
	}
	return currentConfig
}

func SetCurrentConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	currentConfig = cfg
}

// SplitAddrs 拆分 "a:1,b:2" 形式的地址列表，忽略空项
func SplitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
