package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"dispatchdesk/internal/config"
	"dispatchdesk/internal/database"
	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/modules/accesscode"
	"dispatchdesk/internal/modules/profile"
	"dispatchdesk/internal/modules/reconcile"
)

// Seeds a fresh deployment: rotates the registration code away from the
// default and provisions the bootstrap admin through the same
// register-or-recover path production uses, so re-running the seed is
// safe.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	store := docstore.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatal(err)
	}
	provider := identity.NewEmbeddedProvider(db)
	if err := provider.Migrate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	codes := accesscode.NewStore(store)
	code := os.Getenv("SEED_ACCESS_CODE")
	if code != "" {
		if err := codes.Set(ctx, code); err != nil {
			log.Fatal(err)
		}
		log.Println("seed: registration code rotated")
	} else {
		code, err = codes.Get(ctx)
		if err != nil {
			log.Fatal(err)
		}
	}

	profiles := profile.NewService(store, cfg.ProfileWriteTimeout)
	reconciler := reconcile.NewService(provider, profiles, codes)

	out, err := reconciler.RegisterOrRecover(ctx, reconcile.RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		AccessCode:      code,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("seed: admin %s result=%s profile_synced=%t", email, out.Result, out.ProfileSynced)
}
