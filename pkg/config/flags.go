package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key rather than hard-coding names, shorthands, defaults,
// and descriptions inline. This prevents flag drift when the same logical
// flag appears on multiple commands (e.g. --store on serve, ingest and
// search).
type Flag struct {
	// Name is the long flag name (e.g. "store").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "store.path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagStore          = "store"
	FlagStoreWatch     = "store-watch"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagBatchSize      = "batch-size"
	FlagLLMProv        = "llm-provider"
	FlagLLMTgt         = "llm-target"
	FlagLLMModel       = "llm-model"
	FlagK              = "k"
	FlagMinScore       = "min-score"
	FlagDataDir        = "data-dir"
	FlagChunkSize      = "chunk-size"
	FlagChunkOverlap   = "chunk-overlap"
	FlagTarget         = "target"
)

// Flags is the shared flag registry for all chatbot commands.
var Flags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the query server to listen on"},
	FlagStore:          {Name: "store", Shorthand: "s", ViperKey: "store.path", Description: "Path to the vector store file"},
	FlagStoreWatch:     {Name: "store-watch", ViperKey: "store.watch", Description: "Cache the store in memory and reload it when the file changes"},
	FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagBatchSize:      {Name: "batch-size", ViperKey: "embedding.batch_size", Description: "Texts per embedding batch call"},
	FlagLLMProv:        {Name: "llm-provider", ViperKey: "llm.provider", Description: "Generation provider (ollama, openai)"},
	FlagLLMTgt:         {Name: "llm-target", ViperKey: "llm.target", Description: "Generation provider URL"},
	FlagLLMModel:       {Name: "llm-model", Shorthand: "m", ViperKey: "llm.model", Description: "Chat model name"},
	FlagK:              {Name: "k", Shorthand: "k", ViperKey: "retrieval.k", Description: "Top-k candidates kept before the score filter"},
	FlagMinScore:       {Name: "min-score", ViperKey: "retrieval.min_score", Description: "Cosine similarity gate applied after top-k truncation"},
	FlagDataDir:        {Name: "data-dir", ViperKey: "ingest.data_dir", Description: "Directory of documents to ingest"},
	FlagChunkSize:      {Name: "chunk-size", ViperKey: "ingest.chunk_size", Description: "Chunk window size in characters"},
	FlagChunkOverlap:   {Name: "chunk-overlap", ViperKey: "ingest.chunk_overlap", Description: "Overlap between consecutive chunks"},
	FlagTarget:         {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Query server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloat64Flag registers a float64 flag on cmd from the given FlagSet.
func AddFloat64Flag(cmd *cobra.Command, fs FlagSet, key string, target *float64) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	cmd.Flags().BoolVar(target, def.Name, defaultBool(def.ViperKey), def.Description)
}

// BindRegisteredFlags binds already-registered flags to viper using
// definitions from the given FlagSet. Call this in PreRunE after InitViper
// to connect flags to the viper precedence chain
// (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

func defaultFloat64(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
