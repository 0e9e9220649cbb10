package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand scanner 根命令
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanner [command]",
		Short: "股票与期货分析系统",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.AddCommand(NewCmdServe())
	cmd.AddCommand(NewCmdAnalyze())
	cmd.AddCommand(NewCmdBatch())
	cmd.AddCommand(NewCmdMarkets())
	cmd.AddCommand(NewCmdHealth())
	cmd.AddCommand(NewCmdMock())
	return cmd
}
