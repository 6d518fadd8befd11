package models

import "time"

// InstrumentTag is a category of payment method an offer applies to.
type InstrumentTag string

const (
	InstrumentCredit     InstrumentTag = "CREDIT"
	InstrumentDebit      InstrumentTag = "DEBIT"
	InstrumentUPI        InstrumentTag = "UPI"
	InstrumentNetbanking InstrumentTag = "NETBANKING"
	InstrumentEMI        InstrumentTag = "EMI_OPTIONS"
	// InstrumentOthers is the fallback tag so every offer carries at least one.
	InstrumentOthers InstrumentTag = "OTHERS"
)

// Offer represents a bank discount promotion scraped from a checkout page.
// Bank, OfferText and OfferDescription are stored trimmed and lowercased;
// the triple (bank, offer_text, offer_description) is unique in the store.
type Offer struct {
	ID                 string          `json:"id"`                  // uuid
	Bank               string          `json:"bank"`                // lowercased provider name
	OfferText          string          `json:"offer_text"`          // headline, source of kind/magnitude
	OfferDescription   string          `json:"offer_description"`   // fine print, source of min/cap
	PaymentInstruments []InstrumentTag `json:"payment_instruments"` // non-empty
	CreatedAt          time.Time       `json:"created_at"`
}

// RuleKind classifies what a headline promises.
type RuleKind string

const (
	KindPercent RuleKind = "percent"
	KindFlat    RuleKind = "flat"
	KindNoCost  RuleKind = "nocost"
	KindUnknown RuleKind = "unknown"
)

// ParsedRule is the discount rule extracted from a headline. Magnitude is
// percentage points for KindPercent, currency units for KindFlat, 0 otherwise.
type ParsedRule struct {
	Kind      RuleKind `json:"kind"`
	Magnitude float64  `json:"magnitude"`
}

// Constraints are the order-value limits extracted from the fine print.
// MaxDiscountCap is +Inf when the fine print states no cap.
type Constraints struct {
	MinOrderValue  float64 `json:"min_order_value"`
	MaxDiscountCap float64 `json:"max_discount_cap"`
}

// TextField wraps the nested {"text": "..."} accessor the checkout payload
// uses for offer strings.
type TextField struct {
	Text string `json:"text"`
}

// RawOffer is one entry of the checkout payload's offer list.
type RawOffer struct {
	Provider         []string  `json:"provider"`
	OfferText        TextField `json:"offerText"`
	OfferDescription TextField `json:"offerDescription"`
}

// OfferListData holds the offers nested under an OFFER_LIST item.
type OfferListData struct {
	Offers struct {
		OfferList []RawOffer `json:"offerList"`
	} `json:"offers"`
}

// PaymentOptionItem is one entry of paymentOptions.items; only items with
// Type == "OFFER_LIST" carry offers.
type PaymentOptionItem struct {
	Type string        `json:"type"`
	Data OfferListData `json:"data"`
}

// PaymentOptions mirrors the paymentOptions object of the checkout payload.
type PaymentOptions struct {
	Items []PaymentOptionItem `json:"items"`
}

// CreateOffersRequest is the body of POST /offer.
type CreateOffersRequest struct {
	FlipkartOfferAPIResponse *struct {
		PaymentOptions *PaymentOptions `json:"paymentOptions"`
	} `json:"flipkartOfferApiResponse"`
}

// CreateOffersResponse reports ingestion counts.
type CreateOffersResponse struct {
	OffersIdentified int `json:"offersIdentified"`
	NewOffersCreated int `json:"newOffersCreated"`
}

// HighestDiscountResponse is the body of a successful resolution.
type HighestDiscountResponse struct {
	HighestDiscountAmount float64 `json:"highestDiscountAmount"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
