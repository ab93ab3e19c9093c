package model

// ================ Config ================
type ReasoningModelConfig struct {
	Model       string  `envconfig:"REASONING_MODEL" default:"gemini-1.5-flash"`
	MaxTokens   int     `envconfig:"REASONING_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"REASONING_TEMPERATURE" default:"0.7"`
}

type EmbeddingModelConfig struct {
	Model string `envconfig:"EMBEDDING_MODEL" default:"embedding-001"`
}

type PromptConfig struct {
	// DefaultUser is the caller identity rendered into the prompt when a request carries none.
	DefaultUser string `envconfig:"PROMPT_DEFAULT_USER" default:"anonymous"`
}

const (
	StorageDisk   = "disk"
	StorageMemory = "memory"
)

type StorageConfig struct {
	Backend        string `envconfig:"STORAGE_BACKEND" default:"disk"`
	Dir            string `envconfig:"STORAGE_DIR" default:"document_storage"`
	ReindexOnStart bool   `envconfig:"STORAGE_REINDEX_ON_START" default:"true"`
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type EmbeddingCacheConfig struct {
	Backend string `envconfig:"EMBEDDING_CACHE" default:"memory"`
	TTL     string `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`
}
