package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wramadhan/griya/internal/core/domain"
)

// ListingRepository is the structured retriever: exact filters over the
// canonical listing records. It doubles as the ground-truth oracle for
// evaluation runs via Count.
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	property_type TEXT NOT NULL,
	listing_type TEXT NOT NULL,
	price BIGINT NOT NULL,
	bedrooms INT,
	bathrooms INT,
	floors INT,
	land_area DOUBLE PRECISION,
	building_area DOUBLE PRECISION,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	address TEXT NOT NULL DEFAULT '',
	district TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	amenities JSONB NOT NULL DEFAULT '[]'::jsonb,
	certificate TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_types ON listings(property_type, listing_type);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_listings_updated_at ON listings(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const listingColumns = `id, property_type, listing_type, price, bedrooms, bathrooms, floors,
	land_area, building_area, latitude, longitude, address, district, city, amenities, certificate`

// Search returns matches in the source's preferred relevance order
// (freshest first). An empty slice is a confirmed "no data" answer; any
// transport or query error surfaces as ErrRetrievalUnavailable.
func (r *ListingRepository) Search(ctx context.Context, criteria domain.SearchCriteria, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		limit = 20
	}

	where, args := buildConditions(criteria)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY updated_at DESC, id LIMIT $%d`,
		listingColumns, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "listing search", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "listing search", err)
	}
	return out, nil
}

// Count answers "how many records match" directly against the store,
// independent of the retrieval pipeline.
func (r *ListingRepository) Count(ctx context.Context, criteria domain.SearchCriteria) (int, error) {
	where, args := buildConditions(criteria)
	query := `SELECT COUNT(*) FROM listings` + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, domain.WrapError(domain.ErrRetrievalUnavailable, "listing count", err)
	}
	return count, nil
}

func buildConditions(criteria domain.SearchCriteria) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, vals ...any) {
		for _, v := range vals {
			args = append(args, v)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}

	if criteria.PropertyType != "" {
		add("LOWER(property_type) = LOWER(?)", criteria.PropertyType)
	}
	if criteria.ListingType != "" {
		add("LOWER(listing_type) = LOWER(?)", criteria.ListingType)
	}
	if criteria.PriceMin != nil {
		add("price >= ?", *criteria.PriceMin)
	}
	if criteria.PriceMax != nil {
		add("price <= ?", *criteria.PriceMax)
	}
	if criteria.BedroomsMin != nil {
		add("bedrooms >= ?", *criteria.BedroomsMin)
	}
	if criteria.BedroomsMax != nil {
		add("bedrooms <= ?", *criteria.BedroomsMax)
	}
	if criteria.FloorsMin != nil {
		add("floors >= ?", *criteria.FloorsMin)
	}
	if criteria.FloorsMax != nil {
		add("floors <= ?", *criteria.FloorsMax)
	}
	if criteria.Keyword != "" {
		pattern := "%" + criteria.Keyword + "%"
		add("(address ILIKE ? OR district ILIKE ? OR city ILIKE ?)", pattern, pattern, pattern)
	}
	if criteria.Near != nil && criteria.RadiusKm > 0 {
		// Bounding-box approximation; the exact great-circle check happens
		// in the constraint layer.
		latDelta := criteria.RadiusKm / 111.0
		lonDelta := criteria.RadiusKm / (111.0 * math.Max(0.01, math.Cos(criteria.Near.Lat*math.Pi/180)))
		add("latitude BETWEEN ? AND ?", criteria.Near.Lat-latDelta, criteria.Near.Lat+latDelta)
		add("longitude BETWEEN ? AND ?", criteria.Near.Lon-lonDelta, criteria.Near.Lon+lonDelta)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanListing(rows *sql.Rows) (domain.Listing, error) {
	var (
		l            domain.Listing
		bedrooms     sql.NullInt64
		bathrooms    sql.NullInt64
		floors       sql.NullInt64
		landArea     sql.NullFloat64
		buildingArea sql.NullFloat64
		lat          sql.NullFloat64
		lon          sql.NullFloat64
		amenitiesRaw []byte
	)

	err := rows.Scan(
		&l.ID, &l.PropertyType, &l.ListingType, &l.Price, &bedrooms, &bathrooms, &floors,
		&landArea, &buildingArea, &lat, &lon, &l.Address, &l.District, &l.City, &amenitiesRaw, &l.Certificate,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		l.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := int(bathrooms.Int64)
		l.Bathrooms = &v
	}
	if floors.Valid {
		v := int(floors.Int64)
		l.Floors = &v
	}
	if landArea.Valid {
		v := landArea.Float64
		l.LandArea = &v
	}
	if buildingArea.Valid {
		v := buildingArea.Float64
		l.BuildingArea = &v
	}
	if lat.Valid && lon.Valid {
		l.Coordinates = &domain.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
	}
	if len(amenitiesRaw) > 0 {
		if err := json.Unmarshal(amenitiesRaw, &l.Amenities); err != nil {
			return domain.Listing{}, fmt.Errorf("unmarshal amenities: %w", err)
		}
	}
	l.Provenance = domain.ProvenanceStructured
	return l, nil
}
