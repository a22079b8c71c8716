package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/logic/v1/process"
	"github.com/quka-ai/airag/cmd/service/handler"
)

type Options struct {
	ConfigPath string
	// WithProcess 同时在服务进程内运行定时任务
	WithProcess bool
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	// Add flags for generic options
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config, fallback to AIRAG_* env when empty")
	flagSet.BoolVarP(&o.WithProcess, "process", "p", false, "run background jobs in the service process")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "rag retrieval service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Bootstrap(ctx); err != nil {
		return err
	}
	if opts.WithProcess {
		p := process.NewProcess(app)
		p.Start()
		defer p.Stop()
	}
	return serve(ctx, app)
}

func serve(ctx context.Context, app *core.Core) error {
	httpSrv := &handler.HttpSrv{
		Core:   app,
		Engine: app.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	server := &http.Server{
		Addr:    app.Cfg().Addr,
		Handler: app.HttpEngine(),
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdown); err != nil {
			slog.Error("failed to shutdown http server", slog.String("error", err.Error()))
		}
	}()

	slog.Info("http server listening", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func NewProcessCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "background jobs (index audit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunProcess(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunProcess(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	p := process.NewProcess(app)
	p.Start()
	slog.Info("Process starting...")

	sigs := make(chan os.Signal, 1)
	// 监听 os.Interrupt (Ctrl+C) 和 syscall.SIGTERM (kill)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	// 阻塞等待信号
	<-sigs
	p.Stop()
	return nil
}
