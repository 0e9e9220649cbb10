// Package cli scanner 命令行
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fran0220/stock-scanner/internal/cache"
	"github.com/fran0220/stock-scanner/internal/client"
	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/model"
)

// GlobalOptions 各子命令共用的选项
type GlobalOptions struct {
	ServiceURL string
	Timeout    time.Duration
	LogLevel   string

	cfg *config.Config
	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{out: os.Stdout}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServiceURL, "service-url", "u", o.ServiceURL, "分析服务地址，默认读取 ANALYSIS_SERVICE_URL")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "请求超时时间，默认读取 UPSTREAM_TIMEOUT")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "日志级别")
}

// Complete 加载配置并用命令行参数覆盖
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.ServiceURL != "" {
		cfg.Upstream.BaseURL = o.ServiceURL
	}
	if o.Timeout > 0 {
		cfg.Upstream.Timeout = o.Timeout
	}
	if err := logger.InitLogger(o.LogLevel, ""); err != nil {
		return err
	}
	o.cfg = cfg
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

// Client 命令行只做单次调用，列表缓存使用内存
func (o *GlobalOptions) Client() *client.Client {
	return client.New(o.cfg.Upstream, client.WithCache(cache.NewMemoryProvider()))
}

// parseKind 解析 stock|futures 参数
func parseKind(arg string) (model.AnalysisKind, error) {
	kind := model.AnalysisKind(arg)
	if !kind.Valid() {
		return "", fmt.Errorf("未知的分析类型 %q，可选 stock, futures", arg)
	}
	return kind, nil
}

// validateMarket 空市场取默认值
func validateMarket(kind model.AnalysisKind, market *string) error {
	if *market == "" {
		*market = model.DefaultMarket(kind)
	}
	if !model.ValidMarket(kind, *market) {
		return fmt.Errorf("%s不支持市场 %s", kind.DisplayName(), *market)
	}
	return nil
}
