package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/core"
	"main/internal/httpapi"
	"main/internal/ops"
	"main/internal/store"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	listenAddr := flag.String("listen", "", "Listen address override")
	pyroscopeAddr := flag.String("pyroscope", "http://localhost:4040", "Pyroscope server address")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %+v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if cfg.Features.EnableProfiling {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "deposit-live",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %+v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	var deposits store.Store
	if cfg.Features.EnableStore {
		client, err := conn.New(ctx, conn.Option{
			Host:       cfg.Postgres.Host,
			Port:       cfg.Postgres.Port,
			User:       cfg.Postgres.User,
			Password:   cfg.Postgres.Password,
			Database:   cfg.Postgres.Database,
			ConnString: cfg.Postgres.ConnString,
		})
		if err != nil {
			log.Fatalf("postgres connect failed: %+v", err)
		}
		defer func() {
			_ = client.Close()
		}()
		deposits, err = store.NewPostgres(client)
		if err != nil {
			log.Fatalf("store init failed: %+v", err)
		}
	}

	c := core.New(cfg, deposits)
	go c.Run(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewRouter(c),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logs.Infof("listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %+v", err)
	}
	logs.Info("shutdown complete")
}
