// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the candidate-engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the candidate-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "candidate-engine",
	Short: "Candidate extraction for weakly supervised information extraction",
	Long: `candidate-engine turns parsed sentences into candidate mentions and
candidate relations for a downstream labelling stage.

Documents are parsed into sentences (parse), matcher pipelines select
spans and build candidate sets (extract), candidate sets can be inspected
(candidates) and indexed in a local SQLite store for querying (store).`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./candidate-engine.yaml or ~/.config/candidate-engine/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON lines")
	bindFlag(rootCmd.PersistentFlags(), "log.level", "log-level")
	bindFlag(rootCmd.PersistentFlags(), "log.json", "log-json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("candidate-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "candidate-engine"))
		}
	}

	viper.SetEnvPrefix("CANDIDATE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlag ties a viper key to a flag so config, env and flag feed one value.
func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

// engineConfig reads the resolved settings.
func engineConfig() types.EngineConfig {
	return types.EngineConfig{
		Corpus: types.CorpusConfig{
			Dir: viper.GetString("corpus.dir"),
		},
		Extraction: types.ExtractionConfig{
			Pipeline: viper.GetString("extraction.pipeline"),
			Workers:  viper.GetInt("extraction.workers"),
			Timeout:  viper.GetDuration("extraction.timeout"),
			MaxPairs: viper.GetInt("extraction.max_pairs"),
			OutDir:   viper.GetString("extraction.out_dir"),
		},
		Parse: types.ParseConfig{
			Image:   viper.GetString("parse.image"),
			Args:    viper.GetStringSlice("parse.args"),
			DocsDir: viper.GetString("parse.docs_dir"),
			OutDir:  viper.GetString("parse.out_dir"),
		},
		Store: types.StoreConfig{
			Dir:        viper.GetString("store.dir"),
			MaxResults: viper.GetInt("store.max_results"),
		},
		Log: types.LogConfig{
			Level: viper.GetString("log.level"),
			JSON:  viper.GetBool("log.json"),
		},
	}
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
