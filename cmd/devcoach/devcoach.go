// Package devcoachcmder
package devcoachcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/devcoach/cmd/devcoach/chat"
	configcmder "github.com/papercomputeco/devcoach/cmd/devcoach/config"
	initcmder "github.com/papercomputeco/devcoach/cmd/devcoach/init"
	servecmder "github.com/papercomputeco/devcoach/cmd/devcoach/serve"
	versioncmder "github.com/papercomputeco/devcoach/cmd/version"
)

const devcoachLongDesc string = `Dev Coach is a streaming chat assistant for developers.

Run the relay and talk to it using:
  devcoach serve     Run the relay that streams answers from the model provider
  devcoach chat      Chat with a running relay from the terminal`

const devcoachShortDesc string = "Dev Coach - streaming developer chat"

func NewDevcoachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devcoach",
		Short:         devcoachShortDesc,
		Long:          devcoachLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .devcoach/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
