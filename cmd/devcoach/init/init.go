// Package initcmder provides the init command for initializing a local
// .devcoach directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/devcoach/pkg/cliui"
	"github.com/papercomputeco/devcoach/pkg/config"
	"github.com/papercomputeco/devcoach/pkg/dotdir"
)

const (
	configFile = "config.toml"

	remoteFetchTimeout = 10 * time.Second
	maxRemoteConfig    = 1 << 20
)

const initLongDesc string = `Initialize a new .devcoach/ directory in the current working directory.

Creates a local .devcoach/ directory holding config.toml. A local directory
takes precedence over the default ~/.devcoach/ directory.

Without --preset, config.toml is written with the defaults (OpenRouter through
its OpenAI-compatible API) unless one already exists. With --preset, the file
is always (re)written from the named preset or from a config.toml fetched
over HTTP(S).

Presets: openrouter, openai, anthropic, gemini, ollama

Examples:
  devcoach init
  devcoach init --preset ollama
  devcoach init --preset https://example.com/devcoach/config.toml`

const initShortDesc string = "Initialize a local .devcoach/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		"Provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context, w io.Writer, configDir string) error {
	var (
		cfg *config.Config
		err error
	)
	if c.preset != "" {
		cfg, err = c.presetConfig(ctx)
		if err != nil {
			return err
		}
	}

	dir, err := dotdir.NewManager().Create(configDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, configFile)
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if cfg == nil {
		if exists {
			fmt.Fprintf(w, "Already initialized: %s\n", dir)
			return nil
		}
		cfg = config.NewDefaultConfig()
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Initialized %s\n", cliui.SuccessMark, cliui.DimStyle.Render(path))
	fmt.Fprintf(w, "  %s %s %s %s\n",
		cliui.KeyStyle.Render("Provider:"),
		cliui.ValueStyle.Render(cfg.Relay.Provider),
		cliui.KeyStyle.Render("Model:"),
		cliui.ValueStyle.Render(cfg.Relay.Model),
	)
	return nil
}

func (c *initCommander) presetConfig(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("fetching remote config: empty body")
	}

	return config.ParseConfigTOML(data)
}
