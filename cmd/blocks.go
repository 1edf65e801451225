package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagedit/internal/blocks"
	"github.com/ziadkadry99/pagedit/internal/markup"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks <page-id>",
	Short: "Print the content blocks of a page's editable region as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		l, err := newLoader(cfg, stylescope.New(log), log)
		if err != nil {
			return err
		}
		res, err := l.Load(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		src := res.HTML
		if r, err := markup.Locate(src); err == nil {
			src = r.Inner(src)
		}
		out, err := json.MarshalIndent(blocks.Encode(blocks.Extract(src)), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}
