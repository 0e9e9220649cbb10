package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/mockservice"
)

type MockOptions struct {
	Addr  string
	Delay time.Duration
}

func NewCmdMock() *cobra.Command {
	o := &MockOptions{Addr: ":8000", Delay: 3 * time.Second}
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "启动模拟分析服务，用于本地联调",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&o.Addr, "addr", o.Addr, "监听地址")
	cmd.Flags().DurationVar(&o.Delay, "delay", o.Delay, "单项分析的模拟耗时")
	return cmd
}

func (o *MockOptions) Run(ctx context.Context) error {
	log := logger.For("mock")
	srv := &http.Server{
		Addr:              o.Addr,
		Handler:           mockservice.New(mockservice.WithDelay(o.Delay)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("模拟分析服务启动在 %s", o.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
