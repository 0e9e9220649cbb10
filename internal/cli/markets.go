package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fran0220/stock-scanner/internal/model"
)

type MarketsOptions struct {
	GlobalOptions

	Market string

	kind model.AnalysisKind
}

func NewCmdMarkets() *cobra.Command {
	o := &MarketsOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "markets (stock | futures)",
		Short: "列出市场中的全部代码",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			o.kind = kind
			if err := validateMarket(kind, &o.Market); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.GlobalOptions.Bind(cmd.Flags())
	cmd.Flags().StringVarP(&o.Market, "market", "m", "", "市场：股票 A|US|HK，期货 CN|GLOBAL")
	return cmd
}

func (o *MarketsOptions) Run(ctx context.Context) error {
	api := o.Client()
	var (
		codes []string
		err   error
	)
	if o.kind == model.KindFutures {
		codes, err = api.MarketFutures(ctx, o.Market)
	} else {
		codes, err = api.MarketStocks(ctx, o.Market)
	}
	if err != nil {
		return err
	}
	for _, code := range codes {
		fmt.Fprintln(o.out, code)
	}
	return nil
}
