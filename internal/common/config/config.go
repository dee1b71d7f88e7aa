package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Services      ServicesConfig          `mapstructure:"services"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Reconcile     ReconcileConfig         `mapstructure:"reconcile"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Alerts        AlertConfig             `mapstructure:"alerts"`
	AWS           AWSConfig               `mapstructure:"aws"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Health        HealthConfig            `mapstructure:"health"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	AuditIndex string   `mapstructure:"audit_index"`
}

type RedisConfig struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	JobCacheTTL int    `mapstructure:"job_cache_ttl"` // milliseconds
}

// ServiceEndpoint describes one backend the sagas call.
type ServiceEndpoint struct {
	BaseURL   string  `mapstructure:"base_url"`
	Timeout   int     `mapstructure:"timeout"` // milliseconds
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type ServicesConfig struct {
	Job            ServiceEndpoint `mapstructure:"job"`
	Applier        ServiceEndpoint `mapstructure:"applier"`
	Invitation     ServiceEndpoint `mapstructure:"invitation"`
	JobTransaction ServiceEndpoint `mapstructure:"job_transaction"`
	Submission     ServiceEndpoint `mapstructure:"submission"`
	Inbox          ServiceEndpoint `mapstructure:"inbox"`
}

// All returns the endpoints keyed by their config name.
func (s ServicesConfig) All() map[string]ServiceEndpoint {
	return map[string]ServiceEndpoint{
		"job":             s.Job,
		"applier":         s.Applier,
		"invitation":      s.Invitation,
		"job_transaction": s.JobTransaction,
		"submission":      s.Submission,
		"inbox":           s.Inbox,
	}
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type ReconcileConfig struct {
	Interval    int `mapstructure:"interval"` // milliseconds, 0 disables the loop
	BatchSize   int `mapstructure:"batch_size"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// NotificationConfig controls the inbox fan-out topic.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// AlertConfig controls operator emails for reconciliation records.
type AlertConfig struct {
	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"email"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type HealthConfig struct {
	Address string `mapstructure:"address"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
