package config

import (
	"fmt"
	"strconv"
)

// Config is the persistent chatbot configuration stored as config.toml in
// the .chatbot/ directory. The TOML layout uses sections for logical
// grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Ingest    IngestConfig    `toml:"ingest"`
	Client    ClientConfig    `toml:"client"`
}

// ServerConfig holds query server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	Path string `toml:"path,omitempty"`

	// Watch holds the store in memory and reloads it when the file is
	// republished, instead of re-reading it on every request.
	Watch bool `toml:"watch,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	BatchSize int    `toml:"batch_size,omitempty"`
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// RetrievalConfig holds retrieval defaults applied when a request does not
// supply its own.
type RetrievalConfig struct {
	K        int     `toml:"k,omitempty"`
	MinScore float64 `toml:"min_score,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	DataDir      string `toml:"data_dir,omitempty"`
	ChunkSize    int    `toml:"chunk_size,omitempty"`
	ChunkOverlap int    `toml:"chunk_overlap,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// query server (e.g. chatbot chat). Target is a full URL.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter
// on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"store.path": {
		get: func(c *Config) string { return c.Store.Path },
		set: func(c *Config, v string) error { c.Store.Path = v; return nil },
	},
	"store.watch": {
		get: func(c *Config) string { return strconv.FormatBool(c.Store.Watch) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for store.watch: %w", err)
			}
			c.Store.Watch = b
			return nil
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.batch_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Embedding.BatchSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.batch_size: %w", err)
			}
			c.Embedding.BatchSize = n
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"retrieval.k": {
		get: func(c *Config) string { return strconv.Itoa(c.Retrieval.K) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.k: %w", err)
			}
			c.Retrieval.K = n
			return nil
		},
	},
	"retrieval.min_score": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Retrieval.MinScore, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.min_score: %w", err)
			}
			c.Retrieval.MinScore = f
			return nil
		},
	},
	"ingest.data_dir": {
		get: func(c *Config) string { return c.Ingest.DataDir },
		set: func(c *Config, v string) error { c.Ingest.DataDir = v; return nil },
	},
	"ingest.chunk_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Ingest.ChunkSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.chunk_size: %w", err)
			}
			c.Ingest.ChunkSize = n
			return nil
		},
	},
	"ingest.chunk_overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Ingest.ChunkOverlap) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.chunk_overlap: %w", err)
			}
			c.Ingest.ChunkOverlap = n
			return nil
		},
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
}
