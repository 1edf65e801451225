package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagedit/internal/config"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

var scopeContainer string

var scopeCmd = &cobra.Command{
	Use:   "scope [file.css]",
	Short: "Scope a stylesheet to the editing surface",
	Long: `Rewrites every selector of a stylesheet so it only matches inside the
editing surface container and prints the result. Reads stdin when no file
is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading stylesheet: %w", err)
		}

		container := scopeContainer
		if container == "" {
			container = config.DefaultConfig().Container
			if cfg, err := config.Load(cfgFile); err == nil && cfg.Container != "" {
				container = cfg.Container
			}
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), stylescope.Scope(string(raw), container))
		return err
	},
}

func init() {
	scopeCmd.Flags().StringVar(&scopeContainer, "container", "", "container selector (defaults to the configured container)")
	rootCmd.AddCommand(scopeCmd)
}
