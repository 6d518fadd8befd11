package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-offers-api/internal/cache"
	"bank-offers-api/internal/events"
	"bank-offers-api/internal/features"
	"bank-offers-api/internal/models"
	"bank-offers-api/internal/parser"
)

// ErrNoOfferFound is returned when no stored offer yields a positive
// discount for the requested bank, instrument and amount. It is a
// not-found outcome, not a failure.
var ErrNoOfferFound = errors.New("no applicable offer found")

// Store is the document-store contract the service depends on. The sqlite
// implementation lives in internal/database; tests substitute doubles.
type Store interface {
	FindByBank(ctx context.Context, bank string) ([]models.Offer, error)
	FindExisting(ctx context.Context, bank, offerText, offerDescription string) (*models.Offer, error)
	InsertOffers(ctx context.Context, offers []models.Offer) (int, error)
}

// Service provides the ingestion pipeline and the resolution engine.
type Service struct {
	store    Store
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Manager
	flags    *features.Manager
}

// Options holds optional collaborators for a service.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *events.Manager
	Flags    *features.Manager
}

// NewService creates a service with no cache or event hooks.
func NewService(store Store) *Service {
	return NewServiceWithOptions(store, Options{})
}

// NewServiceWithOptions creates a service with explicit collaborators.
func NewServiceWithOptions(store Store, opts Options) *Service {
	if opts.Flags == nil {
		opts.Flags = features.NewManager()
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Service{
		store:    store,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		events:   opts.Events,
		flags:    opts.Flags,
	}
}

// IngestOffers normalizes and stores a batch of raw checkout offers,
// skipping records with missing fields and triples already present.
// It returns how many records the batch contained and how many new rows
// were stored.
func (s *Service) IngestOffers(ctx context.Context, rawOffers []models.RawOffer) (identified, created int, err error) {
	identified = len(rawOffers)

	var newOffers []models.Offer
	for _, raw := range rawOffers {
		bank := "unknown"
		if len(raw.Provider) > 0 && raw.Provider[0] != "" {
			bank = strings.ToLower(strings.TrimSpace(raw.Provider[0]))
		}
		offerText := strings.ToLower(strings.TrimSpace(raw.OfferText.Text))
		offerDescription := strings.ToLower(strings.TrimSpace(raw.OfferDescription.Text))

		if bank == "" || offerText == "" || offerDescription == "" {
			continue
		}

		existing, err := s.store.FindExisting(ctx, bank, offerText, offerDescription)
		if err != nil {
			return identified, 0, fmt.Errorf("failed to probe existing offer: %w", err)
		}
		if existing != nil {
			continue
		}

		newOffers = append(newOffers, models.Offer{
			Bank:               bank,
			OfferText:          offerText,
			OfferDescription:   offerDescription,
			PaymentInstruments: parser.ExtractInstruments(offerText, offerDescription),
		})
	}

	if len(newOffers) > 0 {
		created, err = s.store.InsertOffers(ctx, newOffers)
		if err != nil {
			return identified, 0, fmt.Errorf("failed to insert offers: %w", err)
		}

		s.invalidateBanks(ctx, newOffers)
		s.events.PublishOfferIngested(ctx, newOffers, identified, created)
	}

	return identified, created, nil
}

// ResolveHighestDiscount picks the single best offer for a bank, instrument
// and order amount. Candidates are filtered on instrument membership and
// minimum order value, then compared by computed discount with a strict
// greater-than, so ties keep the first-seen offer and a computed 0 is
// indistinguishable from no offer at all.
func (s *Service) ResolveHighestDiscount(ctx context.Context, amount float64, bank, instrument string) (*models.Offer, float64, error) {
	offers, err := s.offersForBank(ctx, bank)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load offers for bank %s: %w", bank, err)
	}

	normalized := models.InstrumentTag(strings.ToUpper(strings.TrimSpace(instrument)))

	var best *models.Offer
	maxDiscount := 0.0

	for i := range offers {
		offer := &offers[i]

		if !hasInstrument(offer.PaymentInstruments, normalized) {
			continue
		}

		rule := parser.ParseOfferText(offer.OfferText)
		constraints := parser.ParseConstraints(offer.OfferDescription)

		if amount < constraints.MinOrderValue {
			continue
		}

		discount := parser.Discount(amount, rule, constraints.MaxDiscountCap)
		if discount > maxDiscount {
			maxDiscount = discount
			best = offer
		}
	}

	if best == nil {
		return nil, 0, ErrNoOfferFound
	}

	s.events.PublishDiscountResolved(ctx, bank, string(normalized), amount, maxDiscount, best.ID)

	return best, maxDiscount, nil
}

// offersForBank loads a bank's offers, consulting the cache when enabled.
// Cache failures fall through to the store; a stale or missing cache never
// fails a resolution request.
func (s *Service) offersForBank(ctx context.Context, bank string) ([]models.Offer, error) {
	useCache := s.cache != nil && s.flags.IsEnabled(features.FeatureCacheEnabled)

	if useCache {
		var cached []models.Offer
		if err := cache.GetJSON(ctx, s.cache, cache.BankKey(bank), &cached); err == nil {
			return cached, nil
		}
	}

	offers, err := s.store.FindByBank(ctx, bank)
	if err != nil {
		return nil, err
	}

	if useCache {
		_ = cache.SetJSON(ctx, s.cache, cache.BankKey(bank), offers, s.cacheTTL)
	}

	return offers, nil
}

// invalidateBanks drops the cached offer set of every bank touched by an
// ingestion batch.
func (s *Service) invalidateBanks(ctx context.Context, offers []models.Offer) {
	if s.cache == nil || !s.flags.IsEnabled(features.FeatureCacheEnabled) {
		return
	}

	seen := make(map[string]bool)
	for _, offer := range offers {
		if seen[offer.Bank] {
			continue
		}
		seen[offer.Bank] = true
		_ = s.cache.Delete(ctx, cache.BankKey(offer.Bank))
	}
}

func hasInstrument(tags []models.InstrumentTag, want models.InstrumentTag) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
