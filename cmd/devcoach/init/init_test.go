package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/devcoach/cmd/devcoach/init"
	"github.com/papercomputeco/devcoach/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "devcoach-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("creates a .devcoach directory in the current directory", func() {
		Expect(run()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".devcoach"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		Expect(run()).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Relay.Provider).To(Equal("openai"))
		Expect(cfg.Relay.BaseURL).To(Equal("https://openrouter.ai/api/v1"))
		Expect(cfg.Relay.Model).To(Equal("gpt-3.5-turbo"))
		Expect(cfg.Relay.Listen).To(Equal(":3000"))
		Expect(cfg.Client.RelayTarget).To(Equal("http://localhost:3000"))
	})

	It("writes the config file owner-readable only", func() {
		Expect(run()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".devcoach", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("does not overwrite an existing config without --preset", func() {
		dir := filepath.Join(tmpDir, ".devcoach")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		existing := "[relay]\nmodel = \"mine\"\n"
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(existing))
	})

	It("writes into --config-dir when given", func() {
		override := filepath.Join(tmpDir, "elsewhere")
		cmd := initcmder.NewInitCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetArgs([]string{"--config-dir", override})
		cmd.SetOut(&bytes.Buffer{})
		Expect(cmd.Execute()).To(Succeed())

		_, err := os.Stat(filepath.Join(override, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("--preset with provider presets",
		func(preset, provider, baseURL string) {
			Expect(run("--preset", preset)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Relay.Provider).To(Equal(provider))
			Expect(cfg.Relay.BaseURL).To(Equal(baseURL))
			Expect(cfg.Relay.Model).NotTo(BeEmpty())
			Expect(cfg.Relay.Listen).To(Equal(":3000"))
		},
		Entry("openrouter", "openrouter", "openai", "https://openrouter.ai/api/v1"),
		Entry("openai", "openai", "openai", "https://api.openai.com/v1"),
		Entry("anthropic", "anthropic", "anthropic", "https://api.anthropic.com"),
		Entry("gemini", "gemini", "gemini", "https://generativelanguage.googleapis.com/"),
		Entry("ollama", "ollama", "ollama", "http://localhost:11434"),
	)

	It("rejects unknown preset names", func() {
		err := run("--preset", "invalid-provider")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))

		_, statErr := os.Stat(filepath.Join(tmpDir, ".devcoach"))
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[relay]
provider = "anthropic"
base_url = "https://api.anthropic.com"
model = "claude-3-5-haiku-latest"
listen = ":9090"
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Relay.Provider).To(Equal("anthropic"))
			Expect(cfg.Relay.Model).To(Equal("claude-3-5-haiku-latest"))
			Expect(cfg.Relay.Listen).To(Equal(":9090"))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns error for unreachable URL", func() {
			err := run("--preset", "http://127.0.0.1:1")
			Expect(err).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})

	It("overwrites existing config.toml when re-running with a different preset", func() {
		Expect(run("--preset", "openai")).To(Succeed())
		Expect(loadConfig(tmpDir).Relay.Provider).To(Equal("openai"))

		Expect(run("--preset", "anthropic")).To(Succeed())
		Expect(loadConfig(tmpDir).Relay.Provider).To(Equal("anthropic"))
	})
})

// loadConfig reads and parses the config.toml from the .devcoach directory
// within the given base directory.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".devcoach", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
