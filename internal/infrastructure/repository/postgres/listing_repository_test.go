package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/wramadhan/griya/internal/core/domain"
)

func listingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "property_type", "listing_type", "price", "bedrooms", "bathrooms", "floors",
		"land_area", "building_area", "latitude", "longitude", "address", "district", "city", "amenities", "certificate",
	})
}

func TestListingRepositorySearchMapsNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewListingRepository(db)
	rows := listingRows().
		AddRow("l-1", "house", "sale", int64(900_000_000), 3, 2, 2,
			120.5, 90.0, 3.6, 98.67, "Jl. Cemara 5", "Cemara", "Medan", []byte(`["carport"]`), "SHM").
		AddRow("l-2", "house", "sale", int64(750_000_000), nil, nil, nil,
			nil, nil, nil, nil, "", "Cemara", "Medan", []byte(`[]`), "")

	mock.ExpectQuery("FROM listings").
		WithArgs("house", 10).
		WillReturnRows(rows)

	listings, err := repo.Search(context.Background(), domain.SearchCriteria{PropertyType: "house"}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	full := listings[0]
	if full.Bedrooms == nil || *full.Bedrooms != 3 {
		t.Fatalf("bedrooms not mapped")
	}
	if full.Coordinates == nil || full.Coordinates.Lat != 3.6 {
		t.Fatalf("coordinates not mapped")
	}
	if len(full.Amenities) != 1 || full.Amenities[0] != "carport" {
		t.Fatalf("amenities not mapped: %v", full.Amenities)
	}
	if full.Provenance != domain.ProvenanceStructured {
		t.Fatalf("provenance = %s, want structured", full.Provenance)
	}

	sparse := listings[1]
	if sparse.Bedrooms != nil || sparse.Floors != nil || sparse.Coordinates != nil {
		t.Fatalf("NULL columns must stay unset pointers")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListingRepositorySearchEmptyIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewListingRepository(db)
	mock.ExpectQuery("FROM listings").
		WithArgs("villa", "rent", 5).
		WillReturnRows(listingRows())

	listings, err := repo.Search(context.Background(),
		domain.SearchCriteria{PropertyType: "villa", ListingType: "rent"}, 5)
	if err != nil {
		t.Fatalf("confirmed empty must not be an error, got %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("expected no listings, got %d", len(listings))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListingRepositorySearchWrapsTransportFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewListingRepository(db)
	mock.ExpectQuery("FROM listings").
		WillReturnError(errors.New("dial tcp: connection refused"))

	_, err = repo.Search(context.Background(), domain.SearchCriteria{}, 10)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("transport failure must wrap ErrRetrievalUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListingRepositoryCountAppliesSameFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewListingRepository(db)
	priceMin, priceMax := int64(1_000_000_000), int64(1_999_999_999)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM listings`).
		WithArgs("house", priceMin, priceMax, "%cemara%", "%cemara%", "%cemara%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.Count(context.Background(), domain.SearchCriteria{
		PropertyType: "house",
		PriceMin:     &priceMin,
		PriceMax:     &priceMax,
		Keyword:      "cemara",
	})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBuildConditionsRadiusBoundingBox(t *testing.T) {
	near := &domain.GeoPoint{Lat: 3.6, Lon: 98.67}
	where, args := buildConditions(domain.SearchCriteria{Near: near, RadiusKm: 3})
	if where == "" {
		t.Fatalf("radius criteria must produce conditions")
	}
	// lat window, lon window: four bound arguments.
	if len(args) != 4 {
		t.Fatalf("expected 4 bound args, got %d", len(args))
	}
	lo, hi := args[0].(float64), args[1].(float64)
	if lo >= near.Lat || hi <= near.Lat {
		t.Fatalf("latitude window [%f, %f] must bracket the center", lo, hi)
	}
}
