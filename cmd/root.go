// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/juanma-plia/PLIA-SHARED/internal/build"
)

// NewRootCommand enables all children commands to read flags from CLI flags,
// environment variables prefixed with PLIA, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("PLIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/plia", "$HOME/.plia", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}
	_ = viper.ReadInConfig()

	return &cobra.Command{
		Use:     "plia-shared",
		Short:   "The shared access-control and data-retrieval layer of the PLIA backend services",
		Long:    `The shared access-control and data-retrieval layer of the PLIA backend services. It resolves which series a profile may see and serves them from the configured document store.`,
		Version: build.Version,
	}
}
