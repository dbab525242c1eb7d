package ollama

func buildCriteriaPrompt(question string) string {
	const maxQuestion = 2000
	q := question
	if len(q) > maxQuestion {
		q = q[:maxQuestion]
	}

	return `You extract property search filters from Indonesian real-estate questions.
Return a strict JSON object with keys:
property_type (string: house, apartment, land, shophouse, villa, or ""),
listing_type (string: sale, rent, or ""),
price_min (number in IDR or null), price_max (number in IDR or null),
bedrooms_min (number or null), bedrooms_max (number or null),
floors_min (number or null), floors_max (number or null),
location (string: the area, street, or city mentioned, or "").
Interpret "jt" as millions and "M" as billions of rupiah.
Use null for anything the question does not state. No markdown, no extra keys.

Question:
` + q
}
