package config

const (
	defaultListen       = ":8005"
	defaultClientTarget = "http://localhost:8005"

	defaultStorePath = "vectorstore.json"

	defaultProvider     = "ollama"
	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingModel     = "nomic-embed-text"
	defaultEmbeddingBatchSize = 32

	defaultChatModel = "llama3.1:8b-instruct-q5_K_M"

	defaultK        = 5
	defaultMinScore = 0.25

	defaultDataDir      = "knowledge"
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Store: StoreConfig{
			Path: defaultStorePath,
		},
		Embedding: EmbeddingConfig{
			Provider:  defaultProvider,
			Target:    defaultOllamaTarget,
			Model:     defaultEmbeddingModel,
			BatchSize: defaultEmbeddingBatchSize,
		},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultChatModel,
		},
		Retrieval: RetrievalConfig{
			K:        defaultK,
			MinScore: defaultMinScore,
		},
		Ingest: IngestConfig{
			DataDir:      defaultDataDir,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
