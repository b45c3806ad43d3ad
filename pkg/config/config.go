// Package config carga la configuración con Viper: variables de entorno sobre un .env o
// config.env opcional en el directorio de trabajo.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	JWT         JWTConfig
	HTTP        HTTPConfig
	DIAN        DIANConfig
	Filing      FilingConfig
	Idempotency IdempotencyConfig
	Numbering   NumberingConfig
	Redis       RedisConfig
	Store       StoreConfig
	Metrics     MetricsConfig
}

type AppConfig struct {
	Env      string // development | staging | production
	Name     string
	LogLevel string
}

// DBConfig DatabaseURL, si viene, reemplaza a los campos sueltos.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	ForceIPv4   bool          // hosts cuyo DNS solo resuelve AAAA dentro de Docker
	LockTimeout time.Duration // espera por filas bloqueadas con FOR UPDATE
}

// ConnectionString DSN efectivo.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN arma la URL postgres escapando usuario y contraseña.
func (c DBConfig) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}).String()
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type HTTPConfig struct {
	Host        string
	Port        int
	ReadTimeout time.Duration
}

// Addr host:puerto de escucha.
func (c HTTPConfig) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// DIANConfig firma y envío de documentos electrónicos.
type DIANConfig struct {
	TechnicalKey string // respaldo cuando el rango no trae clave técnica
	CertPath     string // .p12 o .pem; vacío = documentos sin firma
	CertKeyPath  string // llave .pem cuando CertPath es solo el certificado
	CertPassword string
	AppEnv       string // dev (sin envío), test (SendTestSetAsync), prod (SendBillAsync)
	TestSetID    string
}

// FilingConfig worker de envío a la DIAN.
type FilingConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Lease        time.Duration
}

type IdempotencyConfig struct {
	Lease    time.Duration // solicitud en curso
	CacheTTL time.Duration // respuesta en Redis
}

type NumberingConfig struct {
	LowRangeThreshold int64
}

// RedisConfig Address vacío deshabilita caché y lock.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.Address != "" }

// StoreConfig postgres | memory.
type StoreConfig struct {
	Driver string
}

type MetricsConfig struct {
	Enabled bool
}

var defaults = map[string]any{
	"APP_ENV":   "development",
	"APP_NAME":  "pos-core",
	"LOG_LEVEL": "info",

	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_USER":                 "postgres",
	"DB_NAME":                 "pos_core",
	"DB_SSLMODE":              "disable",
	"DB_MAX_CONNS":            25,
	"DB_MIN_CONNS":            2,
	"DB_FORCE_IPV4":           true,
	"DB_LOCK_TIMEOUT_SECONDS": 10,

	"JWT_EXPIRATION_MINUTES": 60,
	"JWT_ISSUER":             "pos-core",

	"HTTP_HOST":                 "0.0.0.0",
	"HTTP_PORT":                 8080,
	"HTTP_READ_TIMEOUT_SECONDS": 15,

	"DIAN_APP_ENV": "dev",

	"FILING_POLL_INTERVAL_MS":     2000,
	"FILING_BATCH_SIZE":           10,
	"FILING_MAX_ATTEMPTS":         8,
	"FILING_BASE_BACKOFF_SECONDS": 5,
	"FILING_MAX_BACKOFF_SECONDS":  600,
	"FILING_LEASE_SECONDS":        60,

	"IDEMPOTENCY_LEASE_SECONDS":     30,
	"IDEMPOTENCY_CACHE_TTL_MINUTES": 60,

	"NUMBERING_LOW_RANGE_THRESHOLD": 100,

	"STORE_DRIVER":    "postgres",
	"METRICS_ENABLED": false,
}

// Load lee .env / config.env si existen; las variables de entorno tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	for _, name := range []string{".env", "config.env"} {
		v.SetConfigFile(name)
		if err := v.MergeInConfig(); err != nil && !isMissing(err) {
			return nil, fmt.Errorf("config: leer %s: %w", name, err)
		}
	}
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return fromViper(v)
}

func isMissing(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func fromViper(v *viper.Viper) (*Config, error) {
	secs := func(k string) time.Duration { return time.Duration(v.GetInt(k)) * time.Second }
	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			MaxConns:    v.GetInt32("DB_MAX_CONNS"),
			MinConns:    v.GetInt32("DB_MIN_CONNS"),
			ForceIPv4:   v.GetBool("DB_FORCE_IPV4"),
			LockTimeout: secs("DB_LOCK_TIMEOUT_SECONDS"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: time.Duration(v.GetInt("JWT_EXPIRATION_MINUTES")) * time.Minute,
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			ReadTimeout: secs("HTTP_READ_TIMEOUT_SECONDS"),
		},
		DIAN: DIANConfig{
			TechnicalKey: v.GetString("DIAN_TECHNICAL_KEY"),
			CertPath:     v.GetString("DIAN_CERT_PATH"),
			CertKeyPath:  v.GetString("DIAN_CERT_KEY_PATH"),
			CertPassword: v.GetString("DIAN_CERT_PASSWORD"),
			AppEnv:       strings.ToLower(v.GetString("DIAN_APP_ENV")),
			TestSetID:    v.GetString("DIAN_TEST_SET_ID"),
		},
		Filing: FilingConfig{
			PollInterval: time.Duration(v.GetInt("FILING_POLL_INTERVAL_MS")) * time.Millisecond,
			BatchSize:    v.GetInt("FILING_BATCH_SIZE"),
			MaxAttempts:  v.GetInt("FILING_MAX_ATTEMPTS"),
			BaseBackoff:  secs("FILING_BASE_BACKOFF_SECONDS"),
			MaxBackoff:   secs("FILING_MAX_BACKOFF_SECONDS"),
			Lease:        secs("FILING_LEASE_SECONDS"),
		},
		Idempotency: IdempotencyConfig{
			Lease:    secs("IDEMPOTENCY_LEASE_SECONDS"),
			CacheTTL: time.Duration(v.GetInt("IDEMPOTENCY_CACHE_TTL_MINUTES")) * time.Minute,
		},
		Numbering: NumberingConfig{LowRangeThreshold: v.GetInt64("NUMBERING_LOW_RANGE_THRESHOLD")},
		Redis: RedisConfig{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Store:   StoreConfig{Driver: strings.ToLower(v.GetString("STORE_DRIVER"))},
		Metrics: MetricsConfig{Enabled: v.GetBool("METRICS_ENABLED")},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate combinaciones que impiden arrancar.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER inválido: %q (postgres|memory)", c.Store.Driver))
	}
	switch c.DIAN.AppEnv {
	case "dev", "test", "prod":
	default:
		errs = append(errs, fmt.Errorf("DIAN_APP_ENV inválido: %q (dev|test|prod)", c.DIAN.AppEnv))
	}
	if c.Filing.MaxAttempts < 1 {
		errs = append(errs, errors.New("FILING_MAX_ATTEMPTS debe ser >= 1"))
	}
	if c.DB.MinConns > c.DB.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) mayor que DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns))
	}
	return errors.Join(errs...)
}
