package main

import (
	"github.com/spf13/cobra"

	"hiring-portal/internal/parser"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <pdf>",
		Short: "解析简历字段并输出 JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			text, err := extractText(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), parser.NewResumeParser().Parse(text))
		},
	}
}
