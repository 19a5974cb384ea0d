package model

// Request and response bodies of the HTTP API.

// MealBatch is the body of POST /meallog and POST /meallog/upsert.
type MealBatch struct {
	VendorID string      `json:"vendorId"`
	Meals    []MealEntry `json:"meals"`
}

// MessageResponse carries a human-readable message, used for errors too.
type MessageResponse struct {
	Message string `json:"message"`
}

// VendorResponse is returned by POST and PUT /vendor.
type VendorResponse struct {
	Message string `json:"message"`
	Vendor  Vendor `json:"vendor"`
}

// DeleteVendorResponse is returned by DELETE /vendor.
type DeleteVendorResponse struct {
	Message  string `json:"message"`
	VendorID string `json:"vendorId"`
}

// MealLogsResponse is returned by POST /meallog.
type MealLogsResponse struct {
	Message string    `json:"message"`
	Logs    []MealLog `json:"logs"`
}

// UpsertResponse is returned by POST /meallog/upsert.
type UpsertResponse struct {
	Message string        `json:"message"`
	Logs    []TaggedLog   `json:"logs"`
	Summary UpsertSummary `json:"summary"`
}
