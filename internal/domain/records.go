package domain

import (
	"strconv"
	"time"
)

// ============================================================
// Business records owned by the record store
// ============================================================

// Currency is the currency a price or budget is quoted in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyARS Currency = "ARS"
)

// OperationType distinguishes sales from rentals.
type OperationType string

const (
	OperationSale   OperationType = "venta"
	OperationRental OperationType = "alquiler"
)

// ActivityType is the kind of work unit an agent logs.
type ActivityType string

const (
	ActivityGreen      ActivityType = "act_verde"
	ActivityPreListing ActivityType = "pre_listing"
	ActivityPreBuying  ActivityType = "pre_buying"
	ActivityACM        ActivityType = "acm"
	ActivityCaptacion  ActivityType = "captacion"
	ActivityVisit      ActivityType = "visita"
	ActivityReserva    ActivityType = "reserva"
	ActivityCierre     ActivityType = "cierre"
	ActivityReferral   ActivityType = "referido"
)

// ValidActivityTypes lists every recognized activity type.
var ValidActivityTypes = []ActivityType{
	ActivityGreen, ActivityPreListing, ActivityPreBuying, ActivityACM,
	ActivityCaptacion, ActivityVisit, ActivityReserva, ActivityCierre, ActivityReferral,
}

// IsValid reports whether t is a recognized activity type.
func (t ActivityType) IsValid() bool {
	for _, v := range ValidActivityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// PropertyStatus is the listing state of a property.
type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "disponible"
	PropertyReserved  PropertyStatus = "reservada"
	PropertySold      PropertyStatus = "vendida"
	PropertySuspended PropertyStatus = "suspendida"
)

// IsActive reports whether the property still counts as open inventory.
func (s PropertyStatus) IsActive() bool {
	return s == PropertyAvailable || s == PropertyReserved
}

// IsValid reports whether s is a recognized property status.
func (s PropertyStatus) IsValid() bool {
	switch s {
	case PropertyAvailable, PropertyReserved, PropertySold, PropertySuspended:
		return true
	}
	return false
}

// VisitStatus is the state of a scheduled showing.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pendiente"
	VisitCompleted VisitStatus = "realizada"
	VisitCancelled VisitStatus = "cancelada"
)

// IsValid reports whether s is a recognized visit status.
func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitPending, VisitCompleted, VisitCancelled:
		return true
	}
	return false
}

// SearchStatus is the state of a buyer search.
type SearchStatus string

const (
	SearchActive    SearchStatus = "activo"
	SearchPaused    SearchStatus = "pausa"
	SearchConcluded SearchStatus = "concretado"
	SearchDropped   SearchStatus = "caido"
)

// IsValid reports whether s is a recognized search status.
func (s SearchStatus) IsValid() bool {
	switch s {
	case SearchActive, SearchPaused, SearchConcluded, SearchDropped:
		return true
	}
	return false
}

// Closing is a completed transaction.
type Closing struct {
	ID                   string        `json:"id"`
	PropertyID           string        `json:"propertyId,omitempty"`
	ManualProperty       string        `json:"manualProperty,omitempty"`
	BuyerClientID        string        `json:"buyerClientId,omitempty"`
	ManualBuyer          string        `json:"manualBuyer,omitempty"`
	Date                 string        `json:"date"`
	Currency             Currency      `json:"currency"`
	SalePrice            float64       `json:"salePrice"`
	CommissionPercent    float64       `json:"commissionPercent"`
	Sides                int           `json:"sides"`
	SubSplitPercent      float64       `json:"subSplitPercent"`
	AgentHonorarium      float64       `json:"agentHonorarium"`
	TotalBilling         float64       `json:"totalBilling"`
	OperationType        OperationType `json:"operationType"`
	ExchangeRateSnapshot float64       `json:"exchangeRateSnapshot,omitempty"`
}

// Validate checks the closing invariants.
func (c *Closing) Validate() error {
	if c.Sides != 1 && c.Sides != 2 {
		return &ErrValidation{Field: "sides", Message: "must be 1 or 2"}
	}
	if c.Currency != CurrencyUSD && c.Currency != CurrencyARS {
		return &ErrValidation{Field: "currency", Message: "must be USD or ARS"}
	}
	if c.OperationType == "" {
		c.OperationType = OperationSale
	}
	if c.OperationType != OperationSale && c.OperationType != OperationRental {
		return &ErrValidation{Field: "operationType", Message: "must be venta or alquiler"}
	}
	if _, ok := YearOf(c.Date); !ok {
		return &ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if c.SalePrice < 0 {
		return &ErrValidation{Field: "salePrice", Message: "must not be negative"}
	}
	return nil
}

// Activity is a logged unit of work.
type Activity struct {
	ID              string       `json:"id"`
	Date            string       `json:"date"`
	Type            ActivityType `json:"type"`
	ContactID       string       `json:"contactId,omitempty"`
	ContactName     string       `json:"contactName,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	ReferenceID     string       `json:"referenceId,omitempty"`
	SystemGenerated bool         `json:"systemGenerated"`
}

// Validate checks the activity invariants.
func (a *Activity) Validate() error {
	if !a.Type.IsValid() {
		return &ErrValidation{Field: "type", Message: "unknown activity type"}
	}
	if _, ok := YearOf(a.Date); !ok {
		return &ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return nil
}

// Property is a listing obtained from a seller.
type Property struct {
	ID        string         `json:"id"`
	SellerID  string         `json:"sellerId,omitempty"`
	Title     string         `json:"title"`
	Address   string         `json:"address,omitempty"`
	Status    PropertyStatus `json:"status"`
	Price     float64        `json:"price"`
	Currency  Currency       `json:"currency"`
	CreatedAt string         `json:"createdAt"`
}

// Visit is a scheduled or completed showing.
type Visit struct {
	ID            string      `json:"id"`
	PropertyID    string      `json:"propertyId"`
	BuyerClientID string      `json:"buyerClientId,omitempty"`
	Date          string      `json:"date"`
	Status        VisitStatus `json:"status"`
	Feedback      string      `json:"feedback,omitempty"`
	NextSteps     string      `json:"nextSteps,omitempty"`
}

// Buyer is a buyer client.
type Buyer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Seller is a seller client.
type Seller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Budget is the price range a buyer search accepts.
type Budget struct {
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Currency Currency `json:"currency"`
}

// BuyerSearch is an active demand profile.
type BuyerSearch struct {
	ID            string       `json:"id"`
	BuyerClientID string       `json:"buyerClientId"`
	Zone          string       `json:"zone,omitempty"`
	Budget        Budget       `json:"budget"`
	Status        SearchStatus `json:"status"`
}

// YearOf returns the calendar year of a YYYY-MM-DD (or RFC 3339) date.
func YearOf(date string) (int, bool) {
	if len(date) < 10 || date[4] != '-' || date[7] != '-' {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// DateOnly truncates an RFC 3339 timestamp to YYYY-MM-DD.
// It returns false if ts is not a valid timestamp or date.
func DateOnly(ts string) (string, bool) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format(DateLayout), true
	}
	if len(ts) >= 10 {
		if t, err := time.Parse(DateLayout, ts[:10]); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// DateLayout is the layout of every date-only field.
const DateLayout = "2006-01-02"
