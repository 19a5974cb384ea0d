package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// MealType is the slot a meal is served in.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the valid meal types in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// VendorStatus is the lifecycle state of a vendor.
type VendorStatus string

const (
	StatusActive   VendorStatus = "active"
	StatusInactive VendorStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s VendorStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Offering declares that a vendor serves a meal type at a price.
// Offerings are unique per (vendor, meal type).
type Offering struct {
	MealType MealType        `json:"mealType" yaml:"mealType"`
	Offered  bool            `json:"offered" yaml:"offered"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
}

// Vendor is a food vendor owned by an identity, or unowned in local mode.
type Vendor struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"userId,omitempty"`
	Name      string       `json:"name"`
	Status    VendorStatus `json:"status"`
	Offerings []Offering   `json:"meals,omitempty"`
}

// Offering returns the vendor's offering for t, if it offers it.
func (v Vendor) Offering(t MealType) (Offering, bool) {
	for _, o := range v.Offerings {
		if o.MealType == t && o.Offered {
			return o, true
		}
	}
	return Offering{}, false
}

// MealLog records meals received from a vendor on a day.
type MealLog struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"userId,omitempty"`
	VendorID   string          `json:"vendorId"`
	MealType   MealType        `json:"mealType"`
	Date       Date            `json:"date"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	VendorName string          `json:"vendorName,omitempty"`
}

// Key returns the natural key of the log.
func (l MealLog) Key() MealKey {
	return MealKey{OwnerID: l.OwnerID, VendorID: l.VendorID, MealType: l.MealType, Date: l.Date}
}

// Cost returns price × quantity.
func (l MealLog) Cost() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MealKey is the natural key of a MealLog. At most one MealLog exists per key.
type MealKey struct {
	OwnerID  string   `json:"userId,omitempty"`
	VendorID string   `json:"vendorId"`
	MealType MealType `json:"mealType"`
	Date     Date     `json:"date"`
}

func (k MealKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.VendorID, k.MealType, k.Date)
}

// MealEntry is one line of a log or upsert batch. An entry with no price
// takes the vendor's current offering price when it is written.
type MealEntry struct {
	MealType MealType            `json:"mealType" yaml:"mealType"`
	Date     Date                `json:"date" yaml:"date"`
	Price    decimal.NullDecimal `json:"price" yaml:"price"`
	Quantity int                 `json:"quantity" yaml:"quantity"`
}

// UpsertAction tags the outcome of an upsert for one entry.
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
)

// TaggedLog is a MealLog returned by an upsert together with what happened to it.
type TaggedLog struct {
	MealLog
	Action UpsertAction `json:"action"`
}

// UpsertSummary counts the actions of an upsert batch.
type UpsertSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Summarize counts created and updated results.
func Summarize(logs []TaggedLog) UpsertSummary {
	s := UpsertSummary{Total: len(logs)}
	for _, l := range logs {
		switch l.Action {
		case ActionCreated:
			s.Created++
		case ActionUpdated:
			s.Updated++
		}
	}
	return s
}

// ActivityType categorises an audit entry.
type ActivityType string

const (
	ActivityMealAdd      ActivityType = "meal_add"
	ActivityMealRemove   ActivityType = "meal_remove"
	ActivityVendorAdd    ActivityType = "vendor_add"
	ActivityVendorUpdate ActivityType = "vendor_update"
	ActivityVendorDelete ActivityType = "vendor_delete"
)

// Activity is an immutable, human-readable audit entry.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Timestamp   time.Time    `json:"timestamp"`
}
