package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/web"
)

type BatchOptions struct {
	GlobalOptions

	Market   string
	MinScore int

	kind  model.AnalysisKind
	codes []string
}

func NewCmdBatch() *cobra.Command {
	o := &BatchOptions{GlobalOptions: DefaultGlobalOptions(), MinScore: model.DefaultMinScore}
	cmd := &cobra.Command{
		Use:     "batch (stock | futures) CODE...",
		Short:   "批量分析，只显示评分不低于 --min-score 的结果",
		Example: "  scanner batch stock 600519,000858 601318 --min-score 70",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *BatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Market, "market", "m", "", "市场：股票 A|US|HK，期货 CN|GLOBAL")
	fs.IntVar(&o.MinScore, "min-score", o.MinScore, "最低评分 (0-100)")
}

func (o *BatchOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.codes = model.ParseCodeList(strings.Join(args[1:], "\n"))
	return nil
}

func (o *BatchOptions) Validate(args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	o.kind = kind
	if len(o.codes) == 0 {
		return fmt.Errorf("请输入至少一个%s代码", kind.DisplayName())
	}
	if o.MinScore < 0 || o.MinScore > 100 {
		return fmt.Errorf("最低评分需在 0-100 之间: %d", o.MinScore)
	}
	return validateMarket(kind, &o.Market)
}

func (o *BatchOptions) Run(ctx context.Context) error {
	api := o.Client()
	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "代码\t名称\t价格\t涨跌\t评分\t建议")

	count := 0
	if o.kind == model.KindFutures {
		results, err := api.BatchAnalyzeFutures(ctx, model.FuturesBatchRequest{FuturesCodes: o.codes, Market: o.Market, MinScore: o.MinScore})
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%s\n", r.FuturesCode, r.FuturesName,
				web.FormatNumber(r.Price), web.FormatSigned(r.PriceChange), r.Score, r.Recommendation)
		}
		count = len(results)
	} else {
		results, err := api.BatchAnalyzeStocks(ctx, model.StockBatchRequest{StockCodes: o.codes, Market: o.Market, MinScore: o.MinScore})
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%s\n", r.StockCode, r.StockName,
				web.FormatNumber(r.Price), web.FormatSigned(r.PriceChange), r.Score, r.Recommendation)
		}
		count = len(results)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "\n共 %d 个代码，%d 个评分不低于 %d\n", len(o.codes), count, o.MinScore)
	return nil
}
