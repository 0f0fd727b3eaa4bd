// sandbox-mockgw 以独立 HTTP 服务的形式运行内存沙箱网关，用于本地调试。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/magic-box/sandboxgw/internal/log"
	"github.com/magic-box/sandboxgw/sandbox/sandboxtest"
	"go.uber.org/zap"
)

type options struct {
	Addr               string   `long:"addr" default:":8002" description:"Listen address"`
	ProbesUntilRunning int      `long:"probes-until-running" default:"2" description:"Status checks a new sandbox reports Pending before Running"`
	Running            []string `long:"running" description:"Sandbox id that starts out Running, may be repeated"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err == nil {
		log.SetLogger(logger)
	}

	gateway := sandboxtest.NewGateway()
	gateway.ProbesUntilRunning = opts.ProbesUntilRunning
	for _, id := range opts.Running {
		gateway.SetStatus(id, sandboxtest.StatusRunning)
	}

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           gateway,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("mock sandbox gateway listening", zap.String("addr", opts.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", zap.Error(err))
		os.Exit(1)
	}
}
