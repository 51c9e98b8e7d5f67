// Command seed-db loads products and coupons from JSON files into the
// database and installs an HMAC-hashed admin API key. Seed files may be
// plain JSON or gzip-compressed (.gz).
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/banglamart/ordercore/internal/domain/coupon"
	"github.com/banglamart/ordercore/internal/repository"
)

const seedWorkers = 4

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type couponJSON struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discountType"`
	Amount       decimal.Decimal `json:"amount"`
	UsageLimit   *int            `json:"usageLimit"`
	ExpiresAt    *time.Time      `json:"expiresAt"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		couponsFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
	flag.StringVar(&couponsFile, "coupons-file", "", "path to coupons JSON file (.json or .json.gz), optional")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or MART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or MART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("MART_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("MART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, couponsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
	slog.Info("seed complete")
}

func run(ctx context.Context, databaseURL, productsFile, couponsFile, apiKey, pepper string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if couponsFile != "" {
		if err := seedCoupons(ctx, pool, couponsFile); err != nil {
			return errors.Wrap(err, "seed coupons")
		}
	}

	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	var products []productJSON
	if err := readSeedFile(path, &products); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, p := range products {
		g.Go(func() error {
			_, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, category)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, category = $4`,
				p.ID, p.Name, p.Price, p.Category,
			)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("products seeded", "count", len(products))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, path string) error {
	var coupons []couponJSON
	if err := readSeedFile(path, &coupons); err != nil {
		return err
	}

	repo := repository.NewCouponRepository(pool)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, c := range coupons {
		g.Go(func() error {
			err := repo.Create(ctx, &coupon.Coupon{
				ID:           uuid.New().String(),
				Code:         coupon.NormalizeCode(c.Code),
				DiscountType: coupon.DiscountType(c.DiscountType),
				Amount:       c.Amount,
				IsActive:     true,
				UsageLimit:   c.UsageLimit,
				ExpiresAt:    c.ExpiresAt,
				CreatedAt:    time.Now(),
			})
			if errors.Is(err, repository.ErrCouponCodeTaken) {
				slog.Info("coupon already exists, skipping", "code", c.Code)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("coupons seeded", "count", len(coupons))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, 'admin', '{admin}', TRUE)
		ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash,
	)
	if err != nil {
		return err
	}

	slog.Info("api key seeded")
	return nil
}

// readSeedFile decodes a JSON seed file into v, transparently decompressing
// files with a .gz suffix.
func readSeedFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
