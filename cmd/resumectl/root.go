package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/processor"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	timeout time.Duration

	rootCmd = &cobra.Command{
		Use:           "resumectl",
		Short:         "resumectl 在本地对单份简历执行提取、解析和打分",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if debug {
				level = "debug"
			}
			_, err := logger.Init(logger.Config{Level: level, Format: "pretty"})
			return err
		},
	}
)

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "输出调试日志")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "单次命令超时")

	rootCmd.AddCommand(newExtractCmd(), newParseCmd(), newScoreCmd())
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// extractText 按配置选择提取器读取 PDF
func extractText(ctx context.Context, path string) (string, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return "", err
	}
	extractor, err := processor.BuildTextExtractor(ctx, cfg.Extractor)
	if err != nil {
		return "", err
	}
	return extractor.ExtractFromFile(ctx, path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("输出 JSON 失败: %w", err)
	}
	return nil
}
