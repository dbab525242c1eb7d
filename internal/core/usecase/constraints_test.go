package usecase

import (
	"math"
	"testing"

	"github.com/wramadhan/griya/internal/core/domain"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestCheckListingScenarioFromGoldSet(t *testing.T) {
	listing := domain.Listing{
		ID:           "l-1",
		PropertyType: "house",
		Price:        900_000_000,
		Bedrooms:     intPtr(2),
		Floors:       intPtr(2),
		District:     "Cemara",
	}
	cs := domain.ConstraintSet{
		PropertyType: "house",
		Location:     &domain.LocationConstraint{Keywords: []string{"cemara"}},
		Price:        &domain.PriceConstraint{Min: int64Ptr(800_000_000), Max: int64Ptr(1_200_000_000)},
		Bedrooms:     &domain.CountConstraint{Min: intPtr(3)},
		Floors:       &domain.CountConstraint{Min: intPtr(2)},
	}

	verdicts := CheckListing(listing, cs, DefaultConstraintPolicy())

	want := map[domain.ConstraintName]domain.ConstraintVerdict{
		domain.ConstraintPropertyType: domain.VerdictPass,
		domain.ConstraintListingType:  domain.VerdictNotApplicable,
		domain.ConstraintLocation:     domain.VerdictPass,
		domain.ConstraintPrice:        domain.VerdictPass,
		domain.ConstraintBedrooms:     domain.VerdictFail,
		domain.ConstraintFloors:       domain.VerdictPass,
	}
	for name, expected := range want {
		if verdicts[name] != expected {
			t.Fatalf("%s verdict = %s, want %s", name, verdicts[name], expected)
		}
	}
}

func TestColloquialPriceDecadeRange(t *testing.T) {
	pol := DefaultConstraintPolicy()
	pc := &domain.PriceConstraint{Colloquial: "1M-an"}

	min, maxExclusive, ok := PriceBounds(pc, pol)
	if !ok {
		t.Fatalf("expected bounds for 1M-an")
	}
	if *min != 1_000_000_000 || *maxExclusive != 2_000_000_000 {
		t.Fatalf("1M-an bounds = [%d, %d), want [1000000000, 2000000000)", *min, *maxExclusive)
	}

	if got := checkPrice(1_450_000_000, pc, pol); got != domain.VerdictPass {
		t.Fatalf("price 1.45e9 verdict = %s, want PASS", got)
	}
	if got := checkPrice(2_000_000_000, pc, pol); got != domain.VerdictFail {
		t.Fatalf("price 2e9 verdict = %s, want FAIL", got)
	}
}

func TestColloquialPriceTrailingZeroStep(t *testing.T) {
	pol := DefaultConstraintPolicy()
	pc := &domain.PriceConstraint{Colloquial: "500jt-an"}

	min, maxExclusive, ok := PriceBounds(pc, pol)
	if !ok {
		t.Fatalf("expected bounds for 500jt-an")
	}
	if *min != 500_000_000 || *maxExclusive != 600_000_000 {
		t.Fatalf("500jt-an bounds = [%d, %d), want [500000000, 600000000)", *min, *maxExclusive)
	}
}

func TestColloquialPriceUnknownSuffixNotApplicable(t *testing.T) {
	got := checkPrice(100, &domain.PriceConstraint{Colloquial: "7zz-an"}, DefaultConstraintPolicy())
	if got != domain.VerdictNotApplicable {
		t.Fatalf("unparseable colloquial verdict = %s, want NOT_APPLICABLE", got)
	}
}

func TestCheckPriceAroundTolerance(t *testing.T) {
	pol := DefaultConstraintPolicy()
	pc := &domain.PriceConstraint{Around: int64Ptr(1_000_000_000)}

	if got := checkPrice(905_000_000, pc, pol); got != domain.VerdictPass {
		t.Fatalf("within tolerance verdict = %s, want PASS", got)
	}
	if got := checkPrice(1_100_000_000, pc, pol); got != domain.VerdictPass {
		t.Fatalf("upper edge verdict = %s, want PASS", got)
	}
	if got := checkPrice(1_200_000_000, pc, pol); got != domain.VerdictFail {
		t.Fatalf("outside tolerance verdict = %s, want FAIL", got)
	}
}

func TestCheckPriceMissingData(t *testing.T) {
	pc := &domain.PriceConstraint{Min: int64Ptr(1)}
	if got := checkPrice(0, pc, DefaultConstraintPolicy()); got != domain.VerdictMissingData {
		t.Fatalf("zero price verdict = %s, want MISSING_DATA", got)
	}
}

func TestCheckLocationHaversineFallback(t *testing.T) {
	// Listing text has no keyword hit; coordinates are ~1km apart.
	listing := domain.Listing{
		City:        "Medan",
		Coordinates: &domain.GeoPoint{Lat: 3.5952, Lon: 98.6722},
	}
	lc := &domain.LocationConstraint{
		Keywords: []string{"cemara"},
		Center:   &domain.GeoPoint{Lat: 3.6040, Lon: 98.6722},
		RadiusKm: 2,
	}
	if got := checkLocation(listing, lc); got != domain.VerdictPass {
		t.Fatalf("within radius verdict = %s, want PASS", got)
	}

	lc.RadiusKm = 0.5
	if got := checkLocation(listing, lc); got != domain.VerdictFail {
		t.Fatalf("outside radius verdict = %s, want FAIL", got)
	}
}

func TestCheckLocationMissingData(t *testing.T) {
	listing := domain.Listing{}
	lc := &domain.LocationConstraint{Keywords: []string{"cemara"}}
	if got := checkLocation(listing, lc); got != domain.VerdictMissingData {
		t.Fatalf("no location fields verdict = %s, want MISSING_DATA", got)
	}
}

func TestCheckCountExactAndBounds(t *testing.T) {
	if got := checkCount(intPtr(3), &domain.CountConstraint{Exact: intPtr(3)}); got != domain.VerdictPass {
		t.Fatalf("exact match verdict = %s, want PASS", got)
	}
	if got := checkCount(intPtr(2), &domain.CountConstraint{Exact: intPtr(3)}); got != domain.VerdictFail {
		t.Fatalf("exact mismatch verdict = %s, want FAIL", got)
	}
	if got := checkCount(intPtr(4), &domain.CountConstraint{Min: intPtr(2), Max: intPtr(3)}); got != domain.VerdictFail {
		t.Fatalf("above max verdict = %s, want FAIL", got)
	}
	if got := checkCount(nil, &domain.CountConstraint{Min: intPtr(2)}); got != domain.VerdictMissingData {
		t.Fatalf("missing count verdict = %s, want MISSING_DATA", got)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Jakarta to Surabaya, roughly 663km.
	jakarta := domain.GeoPoint{Lat: -6.2088, Lon: 106.8456}
	surabaya := domain.GeoPoint{Lat: -7.2575, Lon: 112.7521}

	d := haversineKm(jakarta, surabaya)
	if math.Abs(d-663) > 15 {
		t.Fatalf("haversine Jakarta-Surabaya = %.1f km, want ~663", d)
	}
	if haversineKm(jakarta, jakarta) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}
