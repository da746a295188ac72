package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeehouse-service/internal/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store reads the static catalog out of Postgres. The catalog has no write
// path; it is loaded once at process start.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to the catalog database
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies catalog schema migrations
func (s *Store) RunMigrations(sourceURL string) error {
	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

type priceRow struct {
	ItemID string `db:"item_id"`
	Size   string `db:"size"`
	Price  string `db:"price"`
}

// LoadItems reads every catalog item with its size/price table
func (s *Store) LoadItems(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT id, name, type, description, special_ingredient, ingredients, roasted, image_square, image_portrait FROM catalog_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog items: %w", err)
	}

	var prices []priceRow
	err = s.db.SelectContext(ctx, &prices,
		"SELECT item_id, size, price FROM catalog_prices ORDER BY item_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog prices: %w", err)
	}

	byItem := make(map[string][]models.PriceOption)
	for _, p := range prices {
		amount, err := models.MoneyFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("bad price %q for item %s: %w", p.Price, p.ItemID, err)
		}
		byItem[p.ItemID] = append(byItem[p.ItemID], models.PriceOption{Size: p.Size, Price: amount})
	}

	for i := range items {
		items[i].Prices = byItem[items[i].ID]
	}

	return items, nil
}
