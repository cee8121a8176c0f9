package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configTemplate struct {
	DataDir  string `yaml:"data_dir"`
	Telegram struct {
		APIID   int    `yaml:"api_id"`
		APIHash string `yaml:"api_hash"`
		Phone   string `yaml:"phone"`
	} `yaml:"telegram"`
	LLM struct {
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Transcribe struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
	} `yaml:"transcribe"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = filepath.Clean(dir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			body, err := yaml.Marshal(defaultConfigTemplate())
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, body, 0o644); err != nil {
				return err
			}

			fmt.Printf("initialized %s\n", cfgPath)
			fmt.Println("Fill in telegram.api_id, telegram.api_hash, telegram.phone and llm.api_key, then run 'tganaliz login --config " + cfgPath + "'.")
			return nil
		},
	}

	return cmd
}

func defaultConfigTemplate() configTemplate {
	var cfg configTemplate
	cfg.DataDir = "data"
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.TimeoutSeconds = 60
	cfg.Transcribe.Model = "whisper-1"
	cfg.Transcribe.Language = "ru"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}
