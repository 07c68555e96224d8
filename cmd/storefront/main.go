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

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/cart"
	"github.com/iliyamo/shopflow/internal/catalog"
	"github.com/iliyamo/shopflow/internal/checkout"
	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/handler"
	"github.com/iliyamo/shopflow/internal/middleware"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/orders"
	"github.com/iliyamo/shopflow/internal/router"
	"github.com/iliyamo/shopflow/internal/session"
	"github.com/iliyamo/shopflow/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	store, err := storage.Open(cfg.Storage, rdb)
	if err != nil {
		log.Fatalf("storefront: open storage: %v", err)
	}

	client := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.APITimeout))
	sess := session.New(client, session.NewStorageRepository(store))
	client.SetTokenSource(sess)
	client.OnUnauthorized(func(token string) { sess.ForceLogout(token, "credential rejected by the API") })

	crt := cart.New(cart.NewStorageRepository(store))
	if err := crt.Load(ctx); err != nil {
		log.Printf("storefront: cart not restored: %v", err)
	}
	sess.OnIdentityChange(func(u *model.User) {
		if u == nil {
			return
		}
		if err := crt.Bind(context.Background(), u.ID); err != nil {
			log.Printf("storefront: bind cart to %s: %v", u.ID, err)
		}
	})
	checked := sess.Init(ctx)
	go func() {
		if err := <-checked; err != nil && !errors.Is(err, session.ErrNotAuthenticated) {
			log.Printf("storefront: stored session dropped: %v", err)
		}
	}()

	// simulated mode keeps orders in memory and never reaches a payment provider
	var (
		orderAPI  orders.API
		submitter checkout.Submitter
		confirmer checkout.Confirmer
	)
	switch cfg.Checkout.Mode {
	case "simulated":
		mem := orders.NewMemory(sess.UserID, sess.IsAdmin)
		orderAPI, submitter = mem, checkout.NewSimulatedSubmitter(cfg.Checkout.Delay, mem)
		log.Printf("storefront: checkout is simulated (delay %s)", cfg.Checkout.Delay)
	default:
		orderAPI, submitter, confirmer = client, checkout.NewAPISubmitter(client), client
	}

	cache := middleware.NewCatalogCache(cfg.Cache, rdb)
	throttle := middleware.NewThrottle(cfg.Throttle, rdb)
	products := catalog.NewService(client)
	ch := handler.NewCatalogHandler(products, cache)
	oh := handler.NewOrderHandler(orders.NewService(orderAPI))
	co := handler.NewCheckoutHandler(checkout.NewService(crt, sess, submitter, confirmer), cache)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sess), throttle)
	router.RegisterCatalog(e, ch, cache)
	router.RegisterCart(e, handler.NewCartHandler(crt, products))
	router.RegisterCustomer(e, sess, co, oh, throttle)
	router.RegisterAdmin(e, sess, ch, oh)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("storefront: listening on %s (env=%s, api=%s)", addr, cfg.Env, cfg.APIBaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("storefront: shutdown: %v", err)
	}
}
