package preprocess

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// Fingerprint returns the perceptual difference hash of img in its string form.
func Fingerprint(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return hash.ToString(), nil
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", a, err)
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", b, err)
	}
	return ha.Distance(hb)
}
