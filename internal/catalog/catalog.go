// Package catalog holds the read-only reference data describing each
// specimen label the classifier can produce.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Category is the broad class of a specimen.
type Category string

const (
	Mineral Category = "Mineral"
	Gem     Category = "Gem"
	Rock    Category = "Rock"
	Fossil  Category = "Fossil"
	Unknown Category = "Unknown"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Mineral, Gem, Rock, Fossil, Unknown:
		return true
	}
	return false
}

// Entry is the descriptive metadata for one label.
type Entry struct {
	Category         Category `json:"category"`
	Description      string   `json:"description"`
	Hardness         string   `json:"hardness"`
	Luster           string   `json:"luster"`
	Rarity           string   `json:"rarity"`
	InterestingFacts []string `json:"interestingFacts"`
}

// UnknownEntry is substituted for labels absent from the catalog.
func UnknownEntry() Entry {
	return Entry{
		Category:         Unknown,
		Description:      "Specimen not identified in the reference catalog.",
		Hardness:         "Unknown",
		Luster:           "Unknown",
		Rarity:           "Unknown",
		InterestingFacts: []string{"This specimen needs closer examination."},
	}
}

//go:embed catalog.json
var defaultData []byte

// Catalog maps labels to entries. It is immutable after construction and
// safe for concurrent use.
type Catalog struct {
	entries map[string]Entry
	labels  []string
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultData))
}

// Load reads a catalog from a JSON file. An empty path selects the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a JSON object of label to entry.
func Parse(r io.Reader) (*Catalog, error) {
	var entries map[string]Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	labels := make([]string, 0, len(entries))
	for label, e := range entries {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: empty label", ErrInvalidCatalog)
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidCatalog, label, e.Category)
		}
		labels = append(labels, label)
	}
	slices.Sort(labels)

	return &Catalog{entries: entries, labels: labels}, nil
}

// Lookup returns the entry for label. Labels match exactly.
func (c *Catalog) Lookup(label string) (Entry, bool) {
	e, ok := c.entries[label]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Resolve returns the entry for label, or UnknownEntry when it is absent.
func (c *Catalog) Resolve(label string) Entry {
	if e, ok := c.Lookup(label); ok {
		return e
	}
	return UnknownEntry()
}

// Labels returns the known labels in sorted order.
func (c *Catalog) Labels() []string {
	return slices.Clone(c.labels)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

func (e Entry) clone() Entry {
	e.InterestingFacts = slices.Clone(e.InterestingFacts)
	return e
}
