package domain

// TermTable maps a formal field/amenity term to the colloquial phrases
// users write for it, e.g. "carport" -> ["garasi mobil", "parkir mobil"].
// It is loaded from data, never hardcoded, so the mapping can be extended
// without touching retrieval logic.
type TermTable map[string][]string
