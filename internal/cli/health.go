package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdHealth() *cobra.Command {
	o := DefaultGlobalOptions()
	cmd := &cobra.Command{
		Use:   "health",
		Short: "检查分析服务状态",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			status, err := o.Client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(o.out, "%s  %s  版本 %s\n", o.cfg.Upstream.BaseURL, status.Status, status.Version)
			return nil
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}
