package main

import (
	"fmt"
	"os"

	"hiring-portal/internal/config"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/processor"

	"github.com/spf13/cobra"
)

func newScoreCmd() *cobra.Command {
	var (
		jdFile string
		high   string
		normal string
	)
	cmd := &cobra.Command{
		Use:   "score <pdf>",
		Short: "按配置的向量模型计算简历与 JD 的匹配分",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			jd, err := os.ReadFile(jdFile)
			if err != nil {
				return fmt.Errorf("读取 JD 文件失败: %w", err)
			}
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			embedder, err := processor.BuildEmbedder(cfg.Embedding)
			if err != nil {
				return err
			}
			text, err := extractText(ctx, args[0])
			if err != nil {
				return err
			}
			if text == "" {
				return processor.NewValidationError("extract", processor.ErrEmptyContent, args[0])
			}

			n := parser.NewNormalizer()
			scorer := processor.NewScorer(embedder, processor.WeightsFromConfig(cfg.Scoring))
			res, err := scorer.Score(ctx, n.Normalize(text), n.Normalize(string(jd)),
				processor.SplitKeywords(high), processor.SplitKeywords(normal))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&jdFile, "jd-file", "", "JD 文本文件")
	cmd.Flags().StringVar(&high, "high", "", "高优先级关键词，逗号分隔")
	cmd.Flags().StringVar(&normal, "normal", "", "普通关键词，逗号分隔")
	_ = cmd.MarkFlagRequired("jd-file")
	return cmd
}
