package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/auth"
	"github.com/freshmandi/supply-api/internal/domain/client"
	"github.com/freshmandi/supply-api/internal/domain/product"
	"github.com/freshmandi/supply-api/internal/storage/postgres"
)

type productJSON struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	Category       string          `json:"category"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

type clientJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		clientsFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&clientsFile, "clients-file", "db/seed/clients.json", "path to clients JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SUPPLY_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SUPPLY_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SUPPLY_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SUPPLY_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SUPPLY_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, clientsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, clientsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedClients(ctx, postgres.NewClientRepository(pool), clientsFile); err != nil {
		return errors.Wrap(err, "seed clients")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedClients(ctx context.Context, repo *postgres.ClientRepository, clientsFile string) error {
	slog.Info("reading clients file", slog.String("path", clientsFile))

	data, err := os.ReadFile(clientsFile)
	if err != nil {
		return errors.Wrap(err, "read clients file")
	}

	var clients []clientJSON
	if err := json.Unmarshal(data, &clients); err != nil {
		return errors.Wrap(err, "parse clients JSON")
	}

	slog.Info("upserting clients", slog.Int("count", len(clients)))

	for _, c := range clients {
		if err := repo.Upsert(ctx, client.Client{
			ID:      c.ID,
			Name:    c.Name,
			Contact: c.Contact,
			Phone:   c.Phone,
			Email:   c.Email,
			Address: c.Address,
		}); err != nil {
			return err
		}

		slog.Info("upserted client", slog.String("id", c.ID), slog.String("name", c.Name))
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, product.Product{
			ID:             p.ID,
			Name:           p.Name,
			Unit:           p.Unit,
			Category:       p.Category,
			ReferencePrice: p.ReferencePrice,
		}); err != nil {
			return err
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey(pepper, apiKey),
		Name:    "Default operator key",
		Scopes:  []string{"admin"},
	}, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))

	return nil
}
