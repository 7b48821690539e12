// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	GenAI         GenAIConfig             `mapstructure:"genai"`
	Orchestrator  OrchestratorConfig      `mapstructure:"orchestrator"`
	Memory        MemoryConfig            `mapstructure:"memory"`
	VectorIndex   VectorIndexConfig       `mapstructure:"vector_index"`
	Inventory     InventoryConfig         `mapstructure:"inventory"`
	Kafka         KafkaConfig             `mapstructure:"kafka"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
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
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single URL shorthand
}

// GetAddresses returns the configured addresses, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain Configuration ---

// GenAIConfig selects and configures the generative and embedding providers.
type GenAIConfig struct {
	Provider       string `mapstructure:"provider"` // gemini | openai
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"openai"`
}

// OrchestratorConfig tunes the conversational pipeline.
type OrchestratorConfig struct {
	ResearchTimeout       int      `mapstructure:"research_timeout"`       // milliseconds
	SynthesisTimeout      int      `mapstructure:"synthesis_timeout"`      // milliseconds
	ValidationTimeout     int      `mapstructure:"validation_timeout"`     // milliseconds
	ClassificationTimeout int      `mapstructure:"classification_timeout"` // milliseconds
	NegotiationTimeout    int      `mapstructure:"negotiation_timeout"`    // milliseconds
	MemoryTimeout         int      `mapstructure:"memory_timeout"`         // milliseconds
	PaymentMarkers        []string `mapstructure:"payment_markers"`
	DefaultTermMonths     int      `mapstructure:"default_term_months"`
	DefaultCreditScore    int      `mapstructure:"default_credit_score"`
	FailClosedAudit       bool     `mapstructure:"fail_closed_audit"`
	HistoryWindow         int      `mapstructure:"history_window"`
}

// MemoryConfig configures the customer memory collection.
type MemoryConfig struct {
	Collection string `mapstructure:"collection"`
	MaxNotes   int    `mapstructure:"max_notes"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// VectorIndexConfig configures vector storage for inventory embeddings.
type VectorIndexConfig struct {
	Backend      string `mapstructure:"backend"` // elasticsearch | memory
	Index        string `mapstructure:"index"`
	Dimensions   int    `mapstructure:"dimensions"`
	DefaultLimit int    `mapstructure:"default_limit"`
}

// InventoryConfig configures the cars reader.
type InventoryConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // milliseconds
}

// KafkaConfig configures event publication for downstream CRM consumers.
type KafkaConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Brokers            []string `mapstructure:"brokers"`
	OrchestrationTopic string   `mapstructure:"orchestration_topic"`
	LeadScoreTopic     string   `mapstructure:"lead_score_topic"`
	WriteTimeout       int      `mapstructure:"write_timeout"` // milliseconds
}

// HTTPConfig configures the inbound HTTP API and health endpoints.
type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// ObservabilityConfig configures OpenTelemetry.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
