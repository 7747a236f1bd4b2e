// Package api defines the admin API response contracts and JSON helpers.
// It decouples the wire format from the internal migration types.
package api

import (
	"encoding/json"
	"net/http"
)

// MigrationStatusResponse reports the live state of the migration.
type MigrationStatusResponse struct {
	Phase              string   `json:"phase"`
	DualWrite          bool     `json:"dualWrite"`
	AuthoritativeStore string   `json:"authoritativeStore"`
	ShadowStore        string   `json:"shadowStore,omitempty"`
	CircuitBreaker     string   `json:"circuitBreaker"`
	EntityTypes        []string `json:"entityTypes"`
}

// BackendHealthResponse reports per-backend probe results.
type BackendHealthResponse struct {
	Phase     string `json:"phase"`
	Primary   bool   `json:"primary"`
	Secondary bool   `json:"secondary"`
}

// ConsistencyResponse is the wire form of a cross-backend comparison.
type ConsistencyResponse struct {
	EntityType     string   `json:"entityType"`
	EntityID       string   `json:"entityId"`
	UserID         string   `json:"userId"`
	IsConsistent   bool     `json:"isConsistent"`
	Differences    []string `json:"differences,omitempty"`
	PrimaryValue   string   `json:"primaryValue,omitempty"`
	SecondaryValue string   `json:"secondaryValue,omitempty"`
}

// BackendReadResponse wraps a read from an explicitly chosen backend.
type BackendReadResponse struct {
	Backend string      `json:"backend"`
	Found   bool        `json:"found"`
	Entity  interface{} `json:"entity,omitempty"`
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success writes a JSON response with the given status.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes a standardized JSON error body.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
