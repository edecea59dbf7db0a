// Package main is the entry point for the tgrelay CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/telegram"
	"github.com/flemzord/tgrelay/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tgrelay",
		Short:         "HTTP relay in front of the Telegram Bot API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringSlice("env-file", nil, "Dotenv files to load (default .env)")
	root.AddCommand(versionCmd(), serveCmd(), configCmd(), probeCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tgrelay %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, envFiles := globalFlags(cmd)
			return app.Run(cmd.Context(), app.RunParams{
				ConfigPath: cfgPath,
				EnvFiles:   envFiles,
				Version:    version,
				Commit:     commit,
				Date:       date,
			})
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and print the effective values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, envFiles := globalFlags(cmd)
			if len(args) == 1 {
				cfgPath = args[0]
			}

			cfg, used, err := app.LoadConfig(cfgPath, envFiles...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if used == "" {
				used = "(environment only)"
			}
			fmt.Fprintf(out, "Configuration OK: %s\n\n", used)
			return printRedacted(out, cfg)
		},
	})
	return cmd
}

// printRedacted dumps cfg as YAML with every secret replaced.
func printRedacted(w io.Writer, cfg *config.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return err
	}
	app.NewRedactor(cfg).RedactMap(m)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Call getMe once and report whether the bot token works",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, envFiles := globalFlags(cmd)
			cfg, _, err := app.LoadConfig(cfgPath, envFiles...)
			if err != nil {
				return err
			}

			client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, cfg.Telegram.Timeout)
			if !client.HasToken() {
				return errors.New("telegram bot token is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), client.Timeout())
			defer cancel()

			me, err := client.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("probe failed: %s", app.NewRedactor(cfg).Redact(err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: @%s (id %d)\n", me.Username, me.ID)
			return nil
		},
	}
}

func globalFlags(cmd *cobra.Command) (string, []string) {
	cfgPath, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	return cfgPath, envFiles
}
