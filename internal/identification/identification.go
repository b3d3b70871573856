// Package identification turns an image into a catalog-enriched
// identification using the loaded classifier.
package identification

import "github.com/JaimeStill/specimen/internal/catalog"

// Identification is the outcome of classifying one image. Name and
// Confidence come from the same output index of the same forward pass.
type Identification struct {
	Name             string           `json:"name"`
	Category         catalog.Category `json:"category"`
	Confidence       float64          `json:"confidence"`
	Description      string           `json:"description"`
	Hardness         string           `json:"hardness"`
	Luster           string           `json:"luster"`
	Rarity           string           `json:"rarity"`
	InterestingFacts []string         `json:"interestingFacts"`
	Fingerprint      string           `json:"fingerprint,omitempty"`
}

// IdentifyRequest is the body of POST /identify.
type IdentifyRequest struct {
	ImageURI string `json:"image_uri"`
}

func newIdentification(label string, confidence float64, e catalog.Entry) *Identification {
	return &Identification{
		Name:             label,
		Category:         e.Category,
		Confidence:       confidence,
		Description:      e.Description,
		Hardness:         e.Hardness,
		Luster:           e.Luster,
		Rarity:           e.Rarity,
		InterestingFacts: e.InterestingFacts,
	}
}
