package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/mockapi"
	"github.com/iliyamo/shopflow/internal/queue"
)

func main() {
	cfg := config.LoadMock()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []mockapi.Option
	if cfg.AMQPURL != "" {
		opts = append(opts, mockapi.WithEvents(queue.NewPublisher(cfg.AMQPURL)))
	}
	srv := mockapi.New(cfg, opts...)
	if err := srv.Seed(ctx); err != nil {
		log.Fatalf("mockapi: seed: %v", err)
	}
	if cfg.AMQPURL != "" {
		worker := queue.NewFulfillment(cfg.AMQPURL, srv.Orders())
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("fulfillment: stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())
	srv.Mount(e)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("mockapi: listening on %s (env=%s, delay=%s)", addr, cfg.Env, cfg.Delay)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("mockapi: shutdown: %v", err)
	}
}
