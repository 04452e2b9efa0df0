// Package configcmder provides the config command for managing persistent
// devcoach configuration stored in the .devcoach/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/devcoach/pkg/cliui"
	"github.com/papercomputeco/devcoach/pkg/config"
)

const configLongDesc string = `Manage persistent devcoach configuration.

Configuration is stored as config.toml in the .devcoach/ directory and provides
default values for command flags. Environment variables (DEVCOACH_RELAY_MODEL,
DEVCOACH_RELAY_API_KEY, OPENROUTER_API_KEY, ...) override the file and CLI
flags override both.

Keys use dotted notation matching the TOML section structure:
  relay.provider, relay.base_url, relay.api_key, relay.model, relay.listen,
  client.relay_target

Use subcommands to get, set, or list configuration values:
  devcoach config set <key> <value>    Set a configuration value
  devcoach config get <key>            Get a configuration value
  devcoach config list                 List all configuration values

Examples:
  devcoach config set relay.provider anthropic
  devcoach config set relay.model claude-3-5-haiku-latest
  devcoach config get relay.model
  devcoach config list`

const configShortDesc string = "Manage persistent devcoach configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
