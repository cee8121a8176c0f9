package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "AI_TG_ANALIZ"

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tganaliz",
		Short: "Archive a Telegram chat and keep a rolling participant profile",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.PersistentFlags().String("data-dir", "", "Data directory for sessions, transcripts, media and profiles.")
	_ = viper.BindPFlag("data_dir", cmd.PersistentFlags().Lookup("data-dir"))

	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")
	cmd.PersistentFlags().Bool("trace", false, "Print extra debug info to stderr.")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", cmd.PersistentFlags().Lookup("log-add-source"))
	_ = viper.BindPFlag("trace", cmd.PersistentFlags().Lookup("trace"))

	initViperDefaults()

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newArchiveCmd())
	cmd.AddCommand(newListenCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initViperDefaults() {
	viper.SetDefault("data_dir", "data")

	viper.SetDefault("telegram.api_id", 0)
	viper.SetDefault("telegram.api_hash", "")
	viper.SetDefault("telegram.phone", "")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.timeout_seconds", 60)

	viper.SetDefault("transcribe.base_url", "")
	viper.SetDefault("transcribe.api_key", "")
	viper.SetDefault("transcribe.model", "whisper-1")
	viper.SetDefault("transcribe.language", "ru")

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}
