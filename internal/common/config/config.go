// internal/common/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Translator    TranslatorConfig        `mapstructure:"translator"`
	Vocabulary    VocabularyConfig        `mapstructure:"vocabulary"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	Plaintext      bool   `mapstructure:"plaintext"`
}

type DatabaseConfig struct {
	SQL           SQLConfig           `mapstructure:"sql"`
	MongoDB       MongoDBConfig       `mapstructure:"mongodb"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// SQLConfig describes the relational store. Driver is one of postgres,
// mysql or sqlite; Path is only used by sqlite.
type SQLConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Driver         string `mapstructure:"driver"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// Dialect is the statement dialect matching Driver.
func (s SQLConfig) Dialect() models.SQLDialect {
	return models.SQLDialect(s.Driver)
}

// GetDSN returns the connection string for Driver.
func (s SQLConfig) GetDSN() string {
	switch s.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = s.User
		mc.Passwd = s.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		mc.DBName = s.Database
		mc.ParseTime = true
		return mc.FormatDSN()
	case "sqlite":
		return s.Path
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode,
		)
	}
}

type MongoDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the executor result cache kept in redis.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // for error handling
	MaxRows       int  `mapstructure:"max_rows"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// TranslatorConfig selects how translated queries are rendered.
type TranslatorConfig struct {
	DefaultBackend string `mapstructure:"default_backend"`
	DefaultTarget  string `mapstructure:"default_target"`
	SQLDialect     string `mapstructure:"sql_dialect"`
	MaxBuckets     int    `mapstructure:"max_buckets"`
}

// Options converts the section into translator options.
func (t TranslatorConfig) Options() translator.Config {
	return translator.Config{
		Dialect:    models.SQLDialect(t.SQLDialect),
		MaxBuckets: t.MaxBuckets,
	}
}

// VocabularyConfig is the field classification of the queried dataset.
type VocabularyConfig struct {
	NumericFilters []string            `mapstructure:"numeric_filters"`
	StringFilters  []string            `mapstructure:"string_filters"`
	TotalMetrics   []string            `mapstructure:"total_metrics"`
	AverageMetrics []string            `mapstructure:"average_metrics"`
	Groups         []string            `mapstructure:"groups"`
	SampleValues   map[string][]string `mapstructure:"sample_values"`
}

// Build returns the immutable vocabulary. An empty section selects the
// built-in retail dataset.
func (v VocabularyConfig) Build() (*translator.Vocabulary, error) {
	if len(v.NumericFilters)+len(v.StringFilters) == 0 {
		return translator.DefaultVocabulary(), nil
	}
	return translator.NewVocabulary(translator.VocabularySpec{
		NumericFilters: v.NumericFilters,
		StringFilters:  v.StringFilters,
		TotalMetrics:   v.TotalMetrics,
		AverageMetrics: v.AverageMetrics,
		Groups:         v.Groups,
		SampleValues:   v.SampleValues,
	})
}

// NewTranslator builds the translator described by the translator and
// vocabulary sections.
func (c *Config) NewTranslator() (*translator.Translator, error) {
	vocab, err := c.Vocabulary.Build()
	if err != nil {
		return nil, err
	}
	return translator.New(nil, vocab, c.Translator.Options())
}

// CacheTTL returns the result cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return GetDuration(c.Cache.TTL)
}
