package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Configer", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "chatbot-config-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(dir)
		})
	})

	It("returns defaults when no config file exists", func() {
		cfger, err := NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(NewDefaultConfig()))
	})

	It("round-trips a config through disk", func() {
		cfger, err := NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg := NewDefaultConfig()
		cfg.Server.Listen = ":9999"
		cfg.Store.Watch = true
		Expect(cfger.SaveConfig(cfg)).To(Succeed())

		loaded, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Server.Listen).To(Equal(":9999"))
		Expect(loaded.Store.Watch).To(BeTrue())
	})

	It("fills unset fields from defaults when loading a partial file", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("[llm]\nmodel = \"custom-model\"\n"), 0o644)).To(Succeed())

		cfger, err := NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Model).To(Equal("custom-model"))
		Expect(cfg.Server.Listen).To(Equal(NewDefaultConfig().Server.Listen))
		Expect(cfg.Embedding.Model).To(Equal(NewDefaultConfig().Embedding.Model))
	})

	It("rejects a malformed config file", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("not [valid toml"), 0o644)).To(Succeed())

		cfger, err := NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		_, err = cfger.LoadConfig()
		Expect(err).To(HaveOccurred())
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var cfger *Configer

		BeforeEach(func() {
			var err error
			cfger, err = NewConfiger(dir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists a string value", func() {
			Expect(cfger.SetConfigValue("llm.model", "other-model")).To(Succeed())

			got, err := cfger.GetConfigValue("llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("other-model"))
		})

		It("persists numeric and boolean values through their string forms", func() {
			Expect(cfger.SetConfigValue("retrieval.k", "8")).To(Succeed())
			Expect(cfger.SetConfigValue("retrieval.min_score", "0.4")).To(Succeed())
			Expect(cfger.SetConfigValue("store.watch", "true")).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.K).To(Equal(8))
			Expect(cfg.Retrieval.MinScore).To(Equal(0.4))
			Expect(cfg.Store.Watch).To(BeTrue())
		})

		It("rejects unknown keys", func() {
			Expect(cfger.SetConfigValue("no.such.key", "v")).To(HaveOccurred())
			_, err := cfger.GetConfigValue("no.such.key")
			Expect(err).To(HaveOccurred())
		})

		It("rejects non-numeric values for numeric keys", func() {
			Expect(cfger.SetConfigValue("retrieval.k", "lots")).To(HaveOccurred())
			Expect(cfger.SetConfigValue("store.watch", "maybe")).To(HaveOccurred())
		})
	})
})

var _ = Describe("config keys", func() {
	It("lists every registered key exactly once", func() {
		keys := ValidConfigKeys()
		Expect(keys).To(HaveLen(len(configKeys)))

		seen := map[string]bool{}
		for _, k := range keys {
			Expect(seen[k]).To(BeFalse(), "duplicate key %q", k)
			seen[k] = true
			Expect(IsValidConfigKey(k)).To(BeTrue())
		}
	})

	It("rejects unknown keys", func() {
		Expect(IsValidConfigKey("bogus")).To(BeFalse())
	})

	It("round-trips every key through its setter and getter", func() {
		cfg := NewDefaultConfig()
		for key, info := range configKeys {
			val := info.get(cfg)
			Expect(info.set(cfg, val)).To(Succeed(), "set %q", key)
			Expect(info.get(cfg)).To(Equal(val), "get %q", key)
		}
	})
})

var _ = Describe("InitViper", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "chatbot-viper-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(dir)
		})
	})

	It("serves defaults when no file or env is present", func() {
		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("server.listen")).To(Equal(defaultListen))
		Expect(v.GetInt("retrieval.k")).To(Equal(defaultK))
		Expect(v.GetString("embedding.model")).To(Equal(defaultEmbeddingModel))
	})

	It("prefers file values over defaults", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("[server]\nlisten = \":7777\"\n"), 0o644)).To(Succeed())

		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("server.listen")).To(Equal(":7777"))
	})

	It("prefers environment variables over file values", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("[server]\nlisten = \":7777\"\n"), 0o644)).To(Succeed())

		orig, had := os.LookupEnv("CHATBOT_SERVER_LISTEN")
		Expect(os.Setenv("CHATBOT_SERVER_LISTEN", ":8888")).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv("CHATBOT_SERVER_LISTEN", orig)
			} else {
				_ = os.Unsetenv("CHATBOT_SERVER_LISTEN")
			}
		})

		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("server.listen")).To(Equal(":8888"))
	})
})
