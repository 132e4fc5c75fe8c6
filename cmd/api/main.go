package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatchdesk/internal/config"
	"dispatchdesk/internal/database"
	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/metrics"
	"dispatchdesk/internal/middleware"
	"dispatchdesk/internal/modules/accesscode"
	"dispatchdesk/internal/modules/ban"
	"dispatchdesk/internal/modules/gate"
	"dispatchdesk/internal/modules/profile"
	"dispatchdesk/internal/modules/reconcile"
	"dispatchdesk/internal/modules/roster"
	jwtsvc "dispatchdesk/internal/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	store := docstore.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatal(err)
	}

	var provider identity.Provider
	switch cfg.IdentityMode {
	case "remote":
		provider = identity.NewHTTPProvider(cfg.IdentityBaseURL, cfg.IdentityAPIKey, cfg.IdentityTimeout)
	default:
		embedded := identity.NewEmbeddedProvider(db)
		if err := embedded.Migrate(); err != nil {
			log.Fatal(err)
		}
		provider = embedded
	}

	if err := metrics.Register(nil); err != nil {
		log.Fatal(err)
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.ElevatedTTL)

	profiles := profile.NewService(store, cfg.ProfileWriteTimeout)
	codes := accesscode.NewStore(store)
	hub := roster.NewHub()

	reconcileHandler := reconcile.NewHandler(reconcile.NewService(provider, profiles, codes), j)
	gateHandler := gate.NewHandler(gate.NewService(cfg.PanelCode), j)
	banHandler := ban.NewHandler(ban.NewService(store, hub))
	rosterHandler := roster.NewHandler(roster.NewService(store, codes), hub)
	codeHandler := accesscode.NewHandler(codes, hub)

	r := gin.Default()
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// public
		reconcileHandler.RegisterRoutes(v1)

		// authenticated admins; unlocking the panel lives here
		authed := v1.Group("/admin")
		authed.Use(middleware.JWTAuth(j))
		gateHandler.RegisterRoutes(authed)

		// management surface: admin role + elevated session
		elevated := authed.Group("/")
		elevated.Use(middleware.RequireElevated())
		{
			rosterHandler.RegisterRoutes(elevated)
			banHandler.RegisterRoutes(elevated)
			codeHandler.RegisterRoutes(elevated)
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
