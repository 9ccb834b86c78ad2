package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yonatandev1/tsukuyomi/config"
	"github.com/yonatandev1/tsukuyomi/log"
)

func newInitCmd(configPath *string) *cobra.Command {
	var (
		token string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(*configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", *configPath)
			}

			if !cmd.Flags().Changed("token") {
				token = readInput(cmd.InOrStdin(), cmd.OutOrStdout(), "Bot token (empty to read $DISCORD_TOKEN): ")
			}
			if token == "" {
				token = "${DISCORD_TOKEN}"
			}

			cfg := config.Default()
			cfg.Token = token

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*configPath, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", *configPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", log.SUCCESS, *configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "bot token to write into the config")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func readInput(in io.Reader, out io.Writer, prompt string) string {
	fmt.Fprintf(out, "%s %s", log.INFO, prompt)

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
