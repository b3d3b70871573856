package collection

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/JaimeStill/specimen/internal/identification"
	"github.com/JaimeStill/specimen/pkg/kv"
	"github.com/JaimeStill/specimen/pkg/pagination"
	"github.com/JaimeStill/specimen/pkg/preprocess"
)

type store struct {
	kv         kv.Store
	pagination pagination.Config
	now        func() time.Time
	logger     *slog.Logger

	// mu serializes read-modify-write cycles on Key.
	mu sync.Mutex
}

// New creates a collection store over kv. A nil now uses time.Now.
func New(s kv.Store, page pagination.Config, now func() time.Time, logger *slog.Logger) System {
	if now == nil {
		now = time.Now
	}
	return &store{
		kv:         s,
		pagination: page,
		now:        now,
		logger:     logger.With("system", "collection"),
	}
}

func (s *store) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *store) Save(ctx context.Context, ident identification.Identification, imageURI string) (*Record, error) {
	if err := validate(ident); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: generate id: %w", ErrStorageWrite, err)
	}

	rec := Record{
		Identification: ident,
		ID:             id.String(),
		Timestamp:      s.now().UnixMilli(),
		ImageURI:       imageURI,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	records = append([]Record{rec}, records...)
	if err := s.write(ctx, records); err != nil {
		return nil, err
	}

	s.logger.Info("record saved", "id", rec.ID, "name", rec.Name, "total", len(records))
	return &rec, nil
}

func (s *store) List(ctx context.Context) ([]Record, error) {
	records, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("collection unreadable, returning empty list", "error", err)
		return []Record{}, err
	}
	return records, nil
}

func (s *store) Find(ctx context.Context, id string) (*Record, error) {
	records, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(records, func(r Record) bool { return r.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &records[i], nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return err
	}

	kept := slices.DeleteFunc(records, func(r Record) bool { return r.ID == id })
	if len(kept) == len(records) {
		return nil
	}

	if err := s.write(ctx, kept); err != nil {
		return err
	}

	s.logger.Info("record deleted", "id", id, "total", len(kept))
	return nil
}

func (s *store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, Key); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.logger.Info("collection cleared")
	return nil
}

func (s *store) Statistics(ctx context.Context) (*Statistics, error) {
	records, err := s.List(ctx)
	return Summarize(records), err
}

func (s *store) Similar(ctx context.Context, fingerprint string, maxDistance int) ([]Match, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" || maxDistance < 0 {
		return nil, ErrInvalidFingerprint
	}
	if _, err := preprocess.Distance(fingerprint, fingerprint); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}

	records, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	matches := []Match{}
	for _, r := range records {
		if r.Fingerprint == "" {
			continue
		}
		d, err := preprocess.Distance(fingerprint, r.Fingerprint)
		if err != nil {
			s.logger.Debug("skipping record with unreadable fingerprint", "id", r.ID, "error", err)
			continue
		}
		if d <= maxDistance {
			matches = append(matches, Match{Record: r, Distance: d})
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return matches, nil
}

// Summarize derives statistics from records. The average confidence of an
// empty collection is 0.
func Summarize(records []Record) *Statistics {
	stats := &Statistics{
		Total:      len(records),
		ByCategory: make(map[string]int),
	}
	if len(records) == 0 {
		return stats
	}

	confidences := make([]float64, len(records))
	for i, r := range records {
		stats.ByCategory[string(r.Category)]++
		confidences[i] = r.Confidence
	}
	stats.AverageConfidence = stat.Mean(confidences, nil)

	return stats
}

func (s *store) read(ctx context.Context) ([]Record, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	if !ok {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *store) write(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

func validate(ident identification.Identification) error {
	if strings.TrimSpace(ident.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if math.IsNaN(ident.Confidence) || ident.Confidence < 0 || ident.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidRecord, ident.Confidence)
	}
	if !ident.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, ident.Category)
	}
	return nil
}
