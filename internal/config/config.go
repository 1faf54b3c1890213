// Package config loads the process-wide Config once at startup from
// environment variables, optionally seeded by a .env file, mirroring
// the load-then-validate shape of the teacher's ai-service config
// loader (internal/ai-service/config.go's LoadAIConfig).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// StorageBackend selects the repository family (spec.md §4.1).
type StorageBackend string

const (
	BackendFile       StorageBackend = "file"
	BackendDocumentDB StorageBackend = "documentdb"
	BackendMongoCE    StorageBackend = "mongodb-ce"
	BackendMongoDB    StorageBackend = "mongodb"
)

// VectorSimilarity is the metric used by a mongodb-family vector index.
type VectorSimilarity string

const (
	SimilarityCosine     VectorSimilarity = "cosine"
	SimilarityEuclidean  VectorSimilarity = "euclidean"
	SimilarityDotProduct VectorSimilarity = "dotProduct"
)

// EmbeddingsProvider selects the embedding backend (spec.md §6).
type EmbeddingsProvider string

const (
	ProviderSentenceTransformers EmbeddingsProvider = "sentence-transformers"
	ProviderLiteLLM              EmbeddingsProvider = "litellm"
)

// Config is the immutable, process-wide configuration, built once at
// startup by Load and threaded explicitly through constructors — no
// package-level globals, matching the teacher's explicit-config style.
type Config struct {
	StorageBackend StorageBackend
	Namespace      string
	FileBackendDir string

	DocumentDBHost          string
	DocumentDBPort          int
	DocumentDBDatabase      string
	DocumentDBUsername      string
	DocumentDBPassword      string
	DocumentDBUseTLS        bool
	DocumentDBUseIAM        bool
	DocumentDBDirectConnect bool

	MongoVectorIndexName                string
	MongoVectorSimilarity               VectorSimilarity
	MongoVectorNumCandidatesMultiplier  int

	EmbeddingsProvider        EmbeddingsProvider
	EmbeddingsModelName       string
	EmbeddingsModelDimensions int
	EmbeddingsAPIKey          string
	EmbeddingsAPIBaseURL      string

	HealthCheckIntervalSeconds int
	HealthCheckTimeoutSeconds  int

	FederationSyncIntervalSeconds int

	SecurityScanEnabled        bool
	SecurityScanOnRegistration bool
	SecurityScanTimeoutSeconds int
	SecurityBlockUnsafeServers bool
	SecurityScanFailOpen       bool
	AgentSecurityScanEnabled   bool
	AgentSecurityScanTimeout   int
	AgentSecurityBlockUnsafe   bool

	ProxyConfigPath    string
	ProxyReloadCommand string

	JWTSigningKey string

	RateLimitPerSecond int
	RateLimitBurst     int

	HTTPListenAddr         string
	ShutdownTimeoutSeconds int

	ScopeSeedPath      string
	FederationSeedPath string

	SecurityScannerBinary             string
	SecurityScannerAnalyzers          string
	SecurityScannerMaxConcurrentScans int
}

// Load reads the process configuration from the environment, first
// loading envFilePath via godotenv if non-empty (mirrors LoadAIConfig's
// optional .env.hyper load — here the registry's own .env).
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFilePath, err)
		}
	}

	backend := StorageBackend(getenv("STORAGE_BACKEND", string(BackendFile)))

	cfg := &Config{
		StorageBackend: backend,
		Namespace:      getenv("NAMESPACE", "default"),
		FileBackendDir: getenv("FILE_BACKEND_DIR", "./data"),

		DocumentDBHost:          os.Getenv("DOCUMENTDB_HOST"),
		DocumentDBPort:          getenvInt("DOCUMENTDB_PORT", 27017),
		DocumentDBDatabase:      getenv("DOCUMENTDB_DATABASE", "mcp_registry"),
		DocumentDBUsername:      os.Getenv("DOCUMENTDB_USERNAME"),
		DocumentDBPassword:      os.Getenv("DOCUMENTDB_PASSWORD"),
		DocumentDBUseTLS:        getenvBool("DOCUMENTDB_USE_TLS", true),
		DocumentDBUseIAM:        getenvBool("DOCUMENTDB_USE_IAM", false),
		DocumentDBDirectConnect: getenvBool("DOCUMENTDB_DIRECT_CONNECTION", false),

		MongoVectorIndexName:               getenv("MONGODB_VECTOR_INDEX_NAME", "vector_index"),
		MongoVectorSimilarity:              VectorSimilarity(getenv("MONGODB_VECTOR_SIMILARITY_METRIC", string(SimilarityCosine))),
		MongoVectorNumCandidatesMultiplier: getenvInt("MONGODB_VECTOR_NUM_CANDIDATES_MULTIPLIER", 10),

		EmbeddingsProvider:        EmbeddingsProvider(getenv("EMBEDDINGS_PROVIDER", string(ProviderSentenceTransformers))),
		EmbeddingsModelName:       getenv("EMBEDDINGS_MODEL_NAME", "all-MiniLM-L6-v2"),
		EmbeddingsModelDimensions: getenvInt("EMBEDDINGS_MODEL_DIMENSIONS", 384),
		EmbeddingsAPIKey:          os.Getenv("EMBEDDINGS_API_KEY"),
		EmbeddingsAPIBaseURL:      os.Getenv("EMBEDDINGS_API_BASE_URL"),

		HealthCheckIntervalSeconds: getenvInt("HEALTH_CHECK_INTERVAL_SECONDS", 300),
		HealthCheckTimeoutSeconds:  getenvInt("HEALTH_CHECK_TIMEOUT_SECONDS", 2),

		FederationSyncIntervalSeconds: getenvInt("FEDERATION_SYNC_INTERVAL_SECONDS", 600),

		SecurityScanEnabled:        getenvBool("SECURITY_SCAN_ENABLED", false),
		SecurityScanOnRegistration: getenvBool("SECURITY_SCAN_ON_REGISTRATION", true),
		SecurityScanTimeoutSeconds: getenvInt("SECURITY_SCAN_TIMEOUT", 60),
		SecurityBlockUnsafeServers: getenvBool("SECURITY_BLOCK_UNSAFE_SERVERS", false),
		SecurityScanFailOpen:       getenvBool("SECURITY_SCAN_FAIL_OPEN", false),
		AgentSecurityScanEnabled:   getenvBool("AGENT_SECURITY_SCAN_ENABLED", false),
		AgentSecurityScanTimeout:   getenvInt("AGENT_SECURITY_SCAN_TIMEOUT", 60),
		AgentSecurityBlockUnsafe:   getenvBool("AGENT_SECURITY_BLOCK_UNSAFE", false),

		ProxyConfigPath:    getenv("PROXY_CONFIG_PATH", "./data/proxy_config.json"),
		ProxyReloadCommand: os.Getenv("PROXY_RELOAD_COMMAND"),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),

		RateLimitPerSecond: getenvInt("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     getenvInt("RATE_LIMIT_BURST", 40),

		HTTPListenAddr:         getenv("HTTP_LISTEN_ADDR", ":8080"),
		ShutdownTimeoutSeconds: getenvInt("SHUTDOWN_TIMEOUT_SECONDS", 30),

		ScopeSeedPath:      getenv("SCOPE_SEED_PATH", "./scopes.yaml"),
		FederationSeedPath: getenv("FEDERATION_SEED_PATH", "./federation.yaml"),

		SecurityScannerBinary:             getenv("SECURITY_SCANNER_BINARY", "mcp-scanner"),
		SecurityScannerAnalyzers:          getenv("SECURITY_SCANNER_ANALYZERS", "yara,llm"),
		SecurityScannerMaxConcurrentScans: getenvInt("SECURITY_SCANNER_MAX_CONCURRENT_SCANS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants not expressible per-key.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendDocumentDB, BackendMongoCE, BackendMongoDB:
	default:
		return fmt.Errorf("storage_backend must be one of file, documentdb, mongodb-ce, mongodb, got %q", c.StorageBackend)
	}

	if c.StorageBackend != BackendFile && c.DocumentDBHost == "" {
		return fmt.Errorf("documentdb_host is required for storage_backend=%s", c.StorageBackend)
	}

	switch c.MongoVectorSimilarity {
	case SimilarityCosine, SimilarityEuclidean, SimilarityDotProduct:
	default:
		return fmt.Errorf("mongodb_vector_similarity_metric must be one of cosine, euclidean, dotProduct, got %q", c.MongoVectorSimilarity)
	}

	switch c.EmbeddingsProvider {
	case ProviderSentenceTransformers, ProviderLiteLLM:
	default:
		return fmt.Errorf("embeddings_provider must be one of sentence-transformers, litellm, got %q", c.EmbeddingsProvider)
	}

	if c.EmbeddingsModelDimensions <= 0 {
		return fmt.Errorf("embeddings_model_dimensions must be positive, got %d", c.EmbeddingsModelDimensions)
	}

	if c.HealthCheckIntervalSeconds <= 0 {
		return fmt.Errorf("health_check_interval_seconds must be positive")
	}

	return nil
}

// HasNativeVectorSearch reports whether this backend exposes Mongo's
// native $vectorSearch stage rather than requiring the client-side
// cosine fallback (spec.md §4.1 Search backend selection).
func (c *Config) HasNativeVectorSearch() bool {
	return c.StorageBackend == BackendMongoDB
}

// CollectionName returns the namespaced collection name for base
// (spec.md §6: "<base>_<namespace>").
func (c *Config) CollectionName(base string) string {
	return fmt.Sprintf("%s_%s", base, c.Namespace)
}

// EmbeddingsCollectionName returns the dimension- and namespace-suffixed
// embeddings collection name (spec.md §6: "mcp_embeddings_<dims>_<ns>").
func (c *Config) EmbeddingsCollectionName() string {
	return fmt.Sprintf("mcp_embeddings_%d_%s", c.EmbeddingsModelDimensions, c.Namespace)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
