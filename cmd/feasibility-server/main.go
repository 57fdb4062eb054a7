package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/feasibility-study/internal/config"
	"github.com/joelkehle/feasibility-study/internal/httpapi"
	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
	"github.com/joelkehle/feasibility-study/internal/render"
	"github.com/joelkehle/feasibility-study/internal/session"
	"github.com/joelkehle/feasibility-study/internal/store"
	"github.com/joelkehle/feasibility-study/internal/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		addrFlag   = flag.String("addr", "", "listen address (overrides FEASIBILITY_ADDR)")
		noPDF      = flag.Bool("no-pdf", false, "disable PDF rendering")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := payload.ValidateRegistry(payload.Formatters); err != nil {
		log.Error("section formatter registry incomplete", "err", err)
		log.Sync()
		os.Exit(1)
	}

	if err := run(cfg, log, !*noPDF); err != nil {
		log.Error("server stopped", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger, withPDF bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, log, "feasibility-server", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if err := st.WhenReady(ctx); err != nil {
		log.Warn("store not ready; reads will fall back", "driver", cfg.Store.Driver, "err", err)
	}

	var gen *narrative.Generator
	caller, err := narrative.NewCaller(ctx, cfg, "")
	if err != nil {
		return fmt.Errorf("narrative caller: %w", err)
	}
	if caller != nil {
		gen = narrative.NewGenerator(caller, narrative.OptionsFrom(cfg), log)
	} else {
		log.Warn("no narrative provider configured; report generation is unavailable")
	}

	svc := session.NewService(st, gen, log, session.Options{
		Debounce: cfg.Autosave.Debounce,
		Throttle: cfg.Autosave.Throttle,
	})
	go func() {
		if err := svc.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("answer watch stopped", "err", err)
		}
	}()

	var pdf render.PDFRenderer
	if withPDF {
		pdf = render.NewChromiumPDFRenderer(cfg.Render.ChromePath, cfg.Render.StylePath, log)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           telemetry.Middleware(httpapi.NewServer(svc, st, pdf, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("feasibility-server listening", "addr", cfg.Addr, "store", cfg.Store.Driver, "provider", cfg.Narrative.Provider)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown failed", "err", err)
	}
	if err := svc.Close(sctx); err != nil {
		log.Warn("pending saves not flushed", "err", err)
	}
	log.Info("feasibility-server stopped")
	return nil
}
