package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"photobooth/internal/infra"
	"photobooth/internal/infra/credentials"
	"photobooth/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	var (
		providerFlag string
		keyFlag      string
		deleteFlag   bool
		adminFlag    string
		ttlFlag      time.Duration
	)
	flag.StringVar(&providerFlag, "provider", "", "integration token name referenced by an effect's authKeyRef (e.g. ailabapi, lightx)")
	flag.StringVar(&keyFlag, "key", "", "secret value to store for -provider")
	flag.BoolVar(&deleteFlag, "delete", false, "remove the stored token for -provider")
	flag.StringVar(&adminFlag, "admin", "", "mint an admin console token for this subject instead")
	flag.DurationVar(&ttlFlag, "ttl", 12*time.Hour, "lifetime of the minted admin token")
	flag.Parse()

	if subject := strings.TrimSpace(adminFlag); subject != "" {
		token, err := middleware.SignAdminToken(os.Getenv("ADMIN_JWT_SECRET"), subject, ttlFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to sign admin token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		fmt.Fprintln(os.Stderr, "-provider is required")
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" && !deleteFlag {
		fmt.Fprintf(os.Stderr, "%s key is required via -key\n", provider)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "secretctl").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if deleteFlag {
		if err := store.DeleteToken(ctx, provider); err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete %s token: %v\n", provider, err)
			os.Exit(1)
		}
		fmt.Printf("%s token deleted\n", provider)
		return
	}

	if err := store.SetToken(ctx, provider, key, map[string]any{"updated_by": "secretctl"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s token: %v\n", provider, err)
		os.Exit(1)
	}
	fmt.Printf("%s token stored; reference it with authKeyRef %q\n", provider, provider)
}
