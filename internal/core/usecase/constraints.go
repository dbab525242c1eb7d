package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/wramadhan/griya/internal/core/domain"
)

const earthRadiusKm = 6371.0

// ConstraintPolicy carries the tunable judgment rules. Nothing here is a
// guaranteed reading of user intent; the colloquial rounding convention in
// particular is a documented product decision.
type ConstraintPolicy struct {
	// PriceTolerancePct is the band applied to "around X" constraints.
	PriceTolerancePct float64
	// RoundingUnits maps a lowercase magnitude suffix to its unit value,
	// e.g. "jt" -> 1e6, "m" -> 1e9.
	RoundingUnits map[string]int64
}

func DefaultConstraintPolicy() ConstraintPolicy {
	return ConstraintPolicy{
		PriceTolerancePct: 0.10,
		RoundingUnits: map[string]int64{
			"rb": 1_000,
			"jt": 1_000_000,
			"m":  1_000_000_000,
		},
	}
}

func (p ConstraintPolicy) normalize() ConstraintPolicy {
	out := p
	def := DefaultConstraintPolicy()
	if out.PriceTolerancePct <= 0 {
		out.PriceTolerancePct = def.PriceTolerancePct
	}
	if len(out.RoundingUnits) == 0 {
		out.RoundingUnits = def.RoundingUnits
	}
	return out
}

// CheckListing judges one listing against a gold constraint set, one
// verdict per constraint type.
func CheckListing(l domain.Listing, cs domain.ConstraintSet, pol ConstraintPolicy) map[domain.ConstraintName]domain.ConstraintVerdict {
	pol = pol.normalize()
	return map[domain.ConstraintName]domain.ConstraintVerdict{
		domain.ConstraintPropertyType: checkTypeField(l.PropertyType, cs.PropertyType),
		domain.ConstraintListingType:  checkTypeField(l.ListingType, cs.ListingType),
		domain.ConstraintLocation:     checkLocation(l, cs.Location),
		domain.ConstraintPrice:        checkPrice(l.Price, cs.Price, pol),
		domain.ConstraintBedrooms:     checkCount(l.Bedrooms, cs.Bedrooms),
		domain.ConstraintFloors:       checkCount(l.Floors, cs.Floors),
	}
}

func checkTypeField(have, want string) domain.ConstraintVerdict {
	if strings.TrimSpace(want) == "" {
		return domain.VerdictNotApplicable
	}
	if strings.TrimSpace(have) == "" {
		return domain.VerdictMissingData
	}
	if strings.EqualFold(strings.TrimSpace(have), strings.TrimSpace(want)) {
		return domain.VerdictPass
	}
	return domain.VerdictFail
}

// checkLocation is two-phase: keyword containment over the listing's
// location text, then great-circle distance when both sides carry
// coordinates.
func checkLocation(l domain.Listing, lc *domain.LocationConstraint) domain.ConstraintVerdict {
	if lc == nil || (len(lc.Keywords) == 0 && lc.Center == nil) {
		return domain.VerdictNotApplicable
	}

	text := strings.ToLower(l.LocationText())
	keywordDecidable := len(lc.Keywords) > 0 && text != ""
	if keywordDecidable {
		for _, kw := range lc.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				return domain.VerdictPass
			}
		}
	}

	if lc.Center != nil && l.Coordinates != nil {
		if haversineKm(*l.Coordinates, *lc.Center) <= lc.RadiusKm {
			return domain.VerdictPass
		}
		return domain.VerdictFail
	}

	if keywordDecidable {
		return domain.VerdictFail
	}
	return domain.VerdictMissingData
}

func checkPrice(price int64, pc *domain.PriceConstraint, pol ConstraintPolicy) domain.ConstraintVerdict {
	if pc == nil {
		return domain.VerdictNotApplicable
	}
	if price <= 0 {
		return domain.VerdictMissingData
	}

	min, maxExclusive, ok := PriceBounds(pc, pol)
	if !ok {
		return domain.VerdictNotApplicable
	}
	if min != nil && price < *min {
		return domain.VerdictFail
	}
	if maxExclusive != nil && price >= *maxExclusive {
		return domain.VerdictFail
	}
	return domain.VerdictPass
}

// PriceBounds resolves any of the four price-constraint shapes into a
// [min, maxExclusive) interval. Either bound may be nil (open-ended).
// ok is false when the constraint carries no usable shape.
func PriceBounds(pc *domain.PriceConstraint, pol ConstraintPolicy) (min, maxExclusive *int64, ok bool) {
	if pc == nil {
		return nil, nil, false
	}
	pol = pol.normalize()

	if pc.Colloquial != "" {
		lo, hi, parsed := colloquialRange(pc.Colloquial, pol.RoundingUnits)
		if !parsed {
			return nil, nil, false
		}
		return &lo, &hi, true
	}
	if pc.Around != nil {
		band := int64(math.Round(float64(*pc.Around) * pol.PriceTolerancePct))
		lo := *pc.Around - band
		hi := *pc.Around + band + 1
		return &lo, &hi, true
	}
	if pc.Min == nil && pc.Max == nil {
		return nil, nil, false
	}
	if pc.Min != nil {
		lo := *pc.Min
		min = &lo
	}
	if pc.Max != nil {
		hi := *pc.Max + 1
		maxExclusive = &hi
	}
	return min, maxExclusive, true
}

// colloquialRange interprets magnitude-rounded expressions like "1M-an" or
// "500jt-an" as the half-open decade of the last significant digit:
// "1M-an" -> [1e9, 2e9), "500jt-an" -> [500e6, 600e6).
func colloquialRange(expr string, units map[string]int64) (lo, hi int64, ok bool) {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.TrimSuffix(s, "-an")
	s = strings.TrimSuffix(s, "an")
	if s == "" {
		return 0, 0, false
	}

	digits := s
	var suffix string
	for i, r := range s {
		if r < '0' || r > '9' {
			digits = s[:i]
			suffix = strings.TrimSpace(s[i:])
			break
		}
	}
	if digits == "" {
		return 0, 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, 0, false
	}

	unit := int64(1)
	if suffix != "" {
		u, found := units[suffix]
		if !found {
			return 0, 0, false
		}
		unit = u
	}

	step := unit
	for m := n; m >= 10 && m%10 == 0; m /= 10 {
		step *= 10
	}

	lo = n * unit
	hi = lo + step
	return lo, hi, true
}

func checkCount(have *int, cc *domain.CountConstraint) domain.ConstraintVerdict {
	if cc == nil || (cc.Min == nil && cc.Max == nil && cc.Exact == nil) {
		return domain.VerdictNotApplicable
	}
	if have == nil {
		return domain.VerdictMissingData
	}

	if cc.Exact != nil {
		if *have == *cc.Exact {
			return domain.VerdictPass
		}
		return domain.VerdictFail
	}
	if cc.Min != nil && *have < *cc.Min {
		return domain.VerdictFail
	}
	if cc.Max != nil && *have > *cc.Max {
		return domain.VerdictFail
	}
	return domain.VerdictPass
}

// haversineKm is the great-circle distance between two points, R=6371km.
func haversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
