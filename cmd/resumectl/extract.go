package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var maxLen int
	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "提取 PDF 文本",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			text, err := extractText(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			runes := []rune(text)
			fmt.Fprintf(out, "===== 提取的文本 (%d 字符) =====\n", len(runes))
			if maxLen >= 0 && len(runes) > maxLen {
				fmt.Fprintln(out, string(runes[:maxLen])+"...(已截断，使用 --maxlen 显示更多)")
				return nil
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLen, "maxlen", 1000, "显示的最大字符数，-1 显示全部")
	return cmd
}
