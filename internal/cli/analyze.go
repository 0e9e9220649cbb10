package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fran0220/stock-scanner/internal/client"
	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/progress"
	"github.com/fran0220/stock-scanner/internal/sections"
	"github.com/fran0220/stock-scanner/internal/service"
	"github.com/fran0220/stock-scanner/internal/web"
)

type AnalyzeOptions struct {
	GlobalOptions

	Market string

	kind model.AnalysisKind
	code string
}

func NewCmdAnalyze() *cobra.Command {
	o := &AnalyzeOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:     "analyze (stock | futures) CODE",
		Short:   "分析单只股票或期货合约，并显示分析进度",
		Example: "  scanner analyze stock 600519 --market A\n  scanner analyze futures CU2409",
		Args:    cobra.ExactArgs(2),
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

func (o *AnalyzeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Market, "market", "m", "", "市场：股票 A|US|HK，期货 CN|GLOBAL")
}

func (o *AnalyzeOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.code = strings.TrimSpace(args[1])
	return nil
}

func (o *AnalyzeOptions) Validate(args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	o.kind = kind
	if o.code == "" {
		return fmt.Errorf("请输入%s代码", kind.DisplayName())
	}
	return validateMarket(kind, &o.Market)
}

func (o *AnalyzeOptions) Run(ctx context.Context) error {
	return runAnalysis(ctx, o.out, o.Client(), o.kind, o.code, o.Market, progress.RealClock)
}

// runAnalysis 用进度驱动器执行分析，逐步打印阶段变化，结束后输出结果
func runAnalysis(ctx context.Context, out io.Writer, api *client.Client, kind model.AnalysisKind, code, market string, clock progress.Clock) error {
	changes := make(chan struct{}, 1)
	d := progress.NewDriver[service.Result](progress.DriverOptions{
		Clock: clock,
		OnChange: func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	defer d.Close()

	d.Start(ctx, func(ctx context.Context) (service.Result, error) {
		if kind == model.KindFutures {
			res, err := api.AnalyzeFutures(ctx, model.FuturesAnalyzeRequest{Symbol: code, Market: market})
			return service.Result{Futures: res}, err
		}
		res, err := api.AnalyzeStock(ctx, model.StockAnalyzeRequest{StockCode: code, Market: market})
		return service.Result{Stock: res}, err
	})

	fmt.Fprintf(out, "开始分析%s %s（%s）\n", kind.DisplayName(), code, model.MarketName(market))
	printed := make(map[string]progress.StepStatus)
	for {
		st := d.State()
		printSteps(out, st.Progress, printed)

		switch {
		case st.Status == progress.RunFailed:
			return fmt.Errorf("分析失败: %s", st.Error)
		case st.Status == progress.RunSucceeded && st.Finished:
			printResult(out, st.Result)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		}
	}
}

// printSteps 只打印状态有变化的步骤
func printSteps(out io.Writer, snap progress.Snapshot, printed map[string]progress.StepStatus) {
	for _, step := range snap.Steps {
		if step.Status == progress.StatusWaiting || printed[step.ID] == step.Status {
			continue
		}
		printed[step.ID] = step.Status
		line := fmt.Sprintf("[%3d%%] %s %s", snap.Progress, web.StepIcon(step.Status), step.Name)
		if step.Message != "" {
			line += ": " + step.Message
		}
		fmt.Fprintln(out, line)
	}
}

func printResult(out io.Writer, res service.Result) {
	fmt.Fprintln(out)
	switch {
	case res.Stock != nil:
		r := res.Stock
		fmt.Fprintf(out, "%s %s  价格 %s%s  涨跌 %s\n", r.StockCode, r.StockName,
			web.Currency(r.Market), web.FormatNumber(r.Price), web.FormatSigned(r.PriceChange))
		fmt.Fprintf(out, "评分 %.0f  建议 %s\n", r.Score, r.Recommendation)
		fmt.Fprintf(out, "均线趋势 %s  RSI %s  MACD %s  成交量 %s\n",
			web.TrendText(r.MATrend), web.FormatNumber(r.RSI), web.SignalText(r.MACDSignal), web.VolumeText(r.VolumeStatus))
	case res.Futures != nil:
		r := res.Futures
		fmt.Fprintf(out, "%s %s  价格 %s  涨跌 %s\n", r.FuturesCode, r.FuturesName,
			web.FormatNumber(r.Price), web.FormatSigned(r.PriceChange))
		fmt.Fprintf(out, "评分 %.0f  建议 %s\n", r.Score, r.Recommendation)
		fmt.Fprintf(out, "持仓变化 %s  多空比 %s  波动率 %s\n",
			web.FormatSigned(r.OpenInterestChange), web.FormatNumber(r.LongShortRatio), web.FormatNumber(r.Volatility))
	}

	for _, b := range sections.BuildView(res.AIText()).Blocks {
		fmt.Fprintln(out)
		if b.Title != "" {
			fmt.Fprintf(out, "== %s ==\n", b.Title)
		}
		fmt.Fprintln(out, sections.PlainText(b.Text))
	}
}
