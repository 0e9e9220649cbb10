package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/fran0220/stock-scanner/internal/cache"
	"github.com/fran0220/stock-scanner/internal/client"
	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/handler"
	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/metrics"
	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/scheduler"
	"github.com/fran0220/stock-scanner/internal/service"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	GlobalOptions

	Port string
}

func NewCmdServe() *cobra.Command {
	o := &ServeOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return RunServer(cmd.Context(), o.cfg)
		},
		SilenceUsage: true,
	}
	o.GlobalOptions.Bind(cmd.Flags())
	cmd.Flags().StringVarP(&o.Port, "port", "p", "", "监听端口，默认读取 PORT")
	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	// serve 使用配置中的日志设置，--log-level 显式指定时才覆盖
	level := o.cfg.Log.Level
	if cmd.Flags().Changed("log-level") {
		level = o.LogLevel
	}
	if err := logger.InitLogger(level, o.cfg.Log.File); err != nil {
		return err
	}
	if o.Port != "" {
		o.cfg.Server.Port = o.Port
	}
	return nil
}

// RunServer 启动 Web 服务和后台任务，ctx 取消后优雅退出
func RunServer(ctx context.Context, cfg *config.Config) error {
	log := logger.For("server")
	gin.SetMode(cfg.Server.GinMode)

	provider, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer provider.Close()

	m := metrics.New()
	opts := []client.Option{client.WithCache(provider), client.WithMetrics(m)}
	if cfg.Upstream.RPS > 0 {
		opts = append(opts, client.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Upstream.RPS), cfg.Upstream.Burst)))
	}
	api := client.New(cfg.Upstream, opts...)
	svc := service.New(api, cfg.Progress, service.WithMetrics(m))
	defer svc.Close()

	router, err := handler.NewRouter(cfg.Server, handler.New(svc, cfg.Server.SessionSecret), m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sched := newScheduler(cfg, svc, provider)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("服务启动在端口 %s", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		cancel()
		sched.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("正在关闭服务")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	err = srv.Shutdown(shutdownCtx)
	sched.Wait()
	return err
}

// newScheduler 会话清理、缓存清理和市场列表预热
func newScheduler(cfg *config.Config, svc *service.Service, provider cache.Provider) *scheduler.Scheduler {
	log := logger.For("server")
	s := scheduler.New()
	s.Add(scheduler.Job{
		Name:     "session-sweep",
		Interval: cfg.Progress.JanitorInterval,
		Run: func(ctx context.Context) error {
			if n := svc.Sweep(); n > 0 {
				log.WithField("count", n).Info("已清理过期会话")
			}
			return nil
		},
	})
	if sp, ok := provider.(*cache.SQLiteProvider); ok {
		s.Add(scheduler.Job{
			Name:     "cache-purge",
			Interval: time.Hour,
			Run: func(ctx context.Context) error {
				n, err := sp.Purge(ctx)
				if err == nil && n > 0 {
					log.WithField("count", n).Info("已清理过期缓存")
				}
				return err
			},
		})
	}
	s.Add(scheduler.Job{
		Name:          "market-warmup",
		Interval:      cfg.Upstream.StaleTime,
		RunAtStart:    true,
		MaxRetry:      2,
		RetryInterval: 5 * time.Second,
		Run: func(ctx context.Context) error {
			return warmMarkets(ctx, svc)
		},
	})
	return s
}

// warmMarkets 预先拉取各市场代码列表写入缓存
func warmMarkets(ctx context.Context, svc *service.Service) error {
	var errs []error
	for _, kind := range []model.AnalysisKind{model.KindStock, model.KindFutures} {
		markets := []string{model.MarketA, model.MarketUS, model.MarketHK}
		if kind == model.KindFutures {
			markets = []string{model.FuturesMarketCN, model.FuturesMarketGlobal}
		}
		for _, market := range markets {
			if _, err := svc.MarketCodes(ctx, kind, market); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
