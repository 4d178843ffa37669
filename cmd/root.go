/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valpere/bntran/internal/config"
	"github.com/valpere/bntran/internal/logging"
)

var version = "0.3.0"

var (
	cfgFile string
	envFile string

	settings  = config.New()
	appConfig *config.Config
	logger    = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "bntran",
	Short: "Bulk English to Bengali translator for tabular data",
	Long: `A CLI application that translates selected columns of a CSV file from
English to Bengali.

Repeated cell values are translated once, known terms come from a built-in
and a custom dictionary, and the remaining text is spread over several
translation services with automatic fallback.

Supported services: googleweb, mymemory, google, openai, openrouter, systran, ollama

Use "bntran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		cfg, used, err := config.Load(settings, cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		if used != "" {
			logger.Debug().Str("path", used).Msg("config file loaded")
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.bntran.yaml or ./.bntran.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with environment variables such as API keys")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().String("backend", config.BackendJSON, "Custom dictionary backend (json or sqlite)")
	rootCmd.PersistentFlags().String("dict", config.DefaultDictionaryPath, "Custom dictionary JSON file")
	rootCmd.PersistentFlags().String("db", "./data/bntran.db", "SQLite translation memory and session history")

	mustBind(rootCmd, map[string]string{
		"log.level":          "log-level",
		"log.format":         "log-format",
		"dictionary.backend": "backend",
		"dictionary.path":    "dict",
		"dictionary.db_path": "db",
	})
}

func mustBind(cmd *cobra.Command, bindings map[string]string) {
	flags := cmd.Flags()
	if cmd == rootCmd {
		flags = cmd.PersistentFlags()
	}
	if err := config.BindFlags(settings, flags, bindings); err != nil {
		panic(err)
	}
}
