package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"bank-offers-api/internal/cache"
	"bank-offers-api/internal/database"
	"bank-offers-api/internal/features"
	"bank-offers-api/internal/models"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	dbPath := "./test_" + time.Now().Format("20060102150405.000000000") + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func rawOffer(bank, text, desc string) models.RawOffer {
	return models.RawOffer{
		Provider:         []string{bank},
		OfferText:        models.TextField{Text: text},
		OfferDescription: models.TextField{Text: desc},
	}
}

func TestIngestOffers_StoresAndCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	identified, created, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "10% off on credit cards", "min order ₹500, up to ₹200"),
		rawOffer("ICICI", "Flat cashback ₹150", "valid on upi payments"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	if identified != 2 {
		t.Errorf("Expected 2 identified, got %d", identified)
	}
	if created != 2 {
		t.Errorf("Expected 2 created, got %d", created)
	}

	offers, err := db.FindByBank(ctx, "hdfc")
	if err != nil {
		t.Fatalf("Failed to load offers: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("Expected 1 hdfc offer, got %d", len(offers))
	}

	offer := offers[0]
	if offer.OfferText != "10% off on credit cards" {
		t.Errorf("Expected lowercased headline, got %q", offer.OfferText)
	}
	if len(offer.PaymentInstruments) != 1 || offer.PaymentInstruments[0] != models.InstrumentCredit {
		t.Errorf("Expected {CREDIT} instruments, got %v", offer.PaymentInstruments)
	}
	if offer.ID == "" {
		t.Error("Expected stored offer to have an id")
	}
}

func TestIngestOffers_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	batch := []models.RawOffer{
		rawOffer("HDFC", "10% off on credit cards", "min order ₹500, up to ₹200"),
	}

	if _, created, err := svc.IngestOffers(ctx, batch); err != nil || created != 1 {
		t.Fatalf("First ingest: created=%d err=%v", created, err)
	}

	identified, created, err := svc.IngestOffers(ctx, batch)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if identified != 1 {
		t.Errorf("Expected 1 identified on second ingest, got %d", identified)
	}
	if created != 0 {
		t.Errorf("Expected 0 created on second ingest, got %d", created)
	}

	offers, err := db.FindByBank(ctx, "hdfc")
	if err != nil {
		t.Fatalf("Failed to load offers: %v", err)
	}
	if len(offers) != 1 {
		t.Errorf("Expected exactly 1 stored offer, got %d", len(offers))
	}
}

func TestIngestOffers_DuplicateWithinBatch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	// The existence probe runs before any insert, so both copies survive
	// to the insert step; the unique index catches the second one.
	identified, created, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("AXIS", "5% off on debit cards", "up to ₹100"),
		rawOffer("AXIS", "5% off on debit cards", "up to ₹100"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	if identified != 2 {
		t.Errorf("Expected 2 identified, got %d", identified)
	}
	if created != 1 {
		t.Errorf("Expected 1 created, got %d", created)
	}
}

func TestIngestOffers_SkipsIncompleteRecords(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	missingProvider := models.RawOffer{
		OfferText:        models.TextField{Text: "Flat cashback ₹50 via upi"},
		OfferDescription: models.TextField{Text: "no minimum"},
	}

	identified, created, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "10% off on credit cards", "up to ₹200"),
		rawOffer("SBI", "", "min order ₹500"), // empty headline, skipped
		rawOffer("SBI", "  ", "min order ₹500"),
		missingProvider, // falls back to bank "unknown"
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	if identified != 4 {
		t.Errorf("Expected 4 identified, got %d", identified)
	}
	if created != 2 {
		t.Errorf("Expected 2 created, got %d", created)
	}

	unknown, err := db.FindByBank(ctx, "unknown")
	if err != nil {
		t.Fatalf("Failed to load offers: %v", err)
	}
	if len(unknown) != 1 {
		t.Errorf("Expected 1 offer under bank 'unknown', got %d", len(unknown))
	}
}

func TestResolveHighestDiscount_PercentWithCap(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "10% off on orders above ₹500, max discount ₹200", "min order ₹500, up to ₹200 on credit cards"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	// 10% of 3000 is 300, capped at 200
	_, discount, err := svc.ResolveHighestDiscount(ctx, 3000, "hdfc", "CREDIT")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if discount != 200 {
		t.Errorf("Expected discount 200, got %v", discount)
	}
}

func TestResolveHighestDiscount_FlatCashback(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("ICICI", "Flat cashback ₹150", "valid on upi payments"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	// Requested instrument is trimmed and uppercased before matching
	_, discount, err := svc.ResolveHighestDiscount(ctx, 1000, "icici", " upi ")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if discount != 150 {
		t.Errorf("Expected discount 150, got %v", discount)
	}
}

func TestResolveHighestDiscount_NoCostNeverSelected(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("ICICI", "No cost EMI available", "on icici credit card emi transactions"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	_, _, err = svc.ResolveHighestDiscount(ctx, 50000, "icici", "EMI_OPTIONS")
	if !errors.Is(err, ErrNoOfferFound) {
		t.Fatalf("Expected ErrNoOfferFound, got %v", err)
	}
}

func TestResolveHighestDiscount_InstrumentMismatch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "10% off on credit cards", "up to ₹200"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	_, _, err = svc.ResolveHighestDiscount(ctx, 5000, "hdfc", "upi")
	if !errors.Is(err, ErrNoOfferFound) {
		t.Fatalf("Expected ErrNoOfferFound, got %v", err)
	}
}

func TestResolveHighestDiscount_BelowMinOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "10% off on credit cards", "min order ₹500, up to ₹200"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	_, _, err = svc.ResolveHighestDiscount(ctx, 300, "hdfc", "CREDIT")
	if !errors.Is(err, ErrNoOfferFound) {
		t.Fatalf("Expected ErrNoOfferFound, got %v", err)
	}
}

func TestResolveHighestDiscount_UnknownBank(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db)

	_, _, err := svc.ResolveHighestDiscount(context.Background(), 1000, "nosuchbank", "CREDIT")
	if !errors.Is(err, ErrNoOfferFound) {
		t.Fatalf("Expected ErrNoOfferFound, got %v", err)
	}
}

// stubStore is a fixed-order store double so iteration-order-dependent
// behavior (tie-breaks) can be asserted deterministically.
type stubStore struct {
	offers []models.Offer
}

func (s *stubStore) FindByBank(ctx context.Context, bank string) ([]models.Offer, error) {
	return s.offers, nil
}

func (s *stubStore) FindExisting(ctx context.Context, bank, offerText, offerDescription string) (*models.Offer, error) {
	return nil, nil
}

func (s *stubStore) InsertOffers(ctx context.Context, offers []models.Offer) (int, error) {
	s.offers = append(s.offers, offers...)
	return len(offers), nil
}

func creditOffer(id, headline string) models.Offer {
	return models.Offer{
		ID:                 id,
		Bank:               "hdfc",
		OfferText:          headline,
		OfferDescription:   "valid on credit cards",
		PaymentInstruments: []models.InstrumentTag{models.InstrumentCredit},
	}
}

func TestResolveHighestDiscount_PicksMaximum(t *testing.T) {
	store := &stubStore{offers: []models.Offer{
		creditOffer("offer-100", "flat cashback ₹100"),
		creditOffer("offer-150", "flat cashback ₹150"),
	}}

	svc := NewService(store)

	best, discount, err := svc.ResolveHighestDiscount(context.Background(), 1000, "hdfc", "CREDIT")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if discount != 150 {
		t.Errorf("Expected discount 150, got %v", discount)
	}
	if best.ID != "offer-150" {
		t.Errorf("Expected offer-150, got %s", best.ID)
	}
}

func TestResolveHighestDiscount_FirstSeenWinsTies(t *testing.T) {
	store := &stubStore{offers: []models.Offer{
		creditOffer("offer-100", "flat cashback ₹100"),
		creditOffer("offer-150-a", "flat cashback ₹150"),
		creditOffer("offer-150-b", "save ₹150 today"),
	}}

	svc := NewService(store)

	best, discount, err := svc.ResolveHighestDiscount(context.Background(), 1000, "hdfc", "CREDIT")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if discount != 150 {
		t.Errorf("Expected discount 150, got %v", discount)
	}
	if best.ID != "offer-150-a" {
		t.Errorf("Expected first-seen offer-150-a to win the tie, got %s", best.ID)
	}
}

func TestResolveHighestDiscount_AllZeroCandidates(t *testing.T) {
	store := &stubStore{offers: []models.Offer{
		creditOffer("offer-nocost", "no cost emi on credit cards"),
		creditOffer("offer-vague", "special credit card privileges"),
	}}

	svc := NewService(store)

	_, _, err := svc.ResolveHighestDiscount(context.Background(), 1000, "hdfc", "CREDIT")
	if !errors.Is(err, ErrNoOfferFound) {
		t.Fatalf("Expected ErrNoOfferFound for all-zero candidates, got %v", err)
	}
}

func TestResolveHighestDiscount_CacheInvalidatedByIngest(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, true, "")

	svc := NewServiceWithOptions(db, Options{
		Cache:    cache.NewInMemoryCache(),
		CacheTTL: time.Minute,
		Flags:    flags,
	})
	ctx := context.Background()

	_, _, err := svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "flat cashback ₹100 on credit cards", "no minimum"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest offers: %v", err)
	}

	// Warm the cache
	_, discount, err := svc.ResolveHighestDiscount(ctx, 1000, "hdfc", "CREDIT")
	if err != nil || discount != 100 {
		t.Fatalf("First resolve: discount=%v err=%v", discount, err)
	}

	// A new, better offer must invalidate the cached bank entry
	_, _, err = svc.IngestOffers(ctx, []models.RawOffer{
		rawOffer("HDFC", "flat cashback ₹250 on credit cards", "no minimum"),
	})
	if err != nil {
		t.Fatalf("Failed to ingest second offer: %v", err)
	}

	_, discount, err = svc.ResolveHighestDiscount(ctx, 1000, "hdfc", "CREDIT")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if discount != 250 {
		t.Errorf("Expected discount 250 after invalidation, got %v", discount)
	}
}
