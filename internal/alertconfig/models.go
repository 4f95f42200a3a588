// Package alertconfig manages per-API alert configurations and keeps the alert
// engine's health-check triggers in line with them.
package alertconfig

import (
	"errors"
	"time"
)

// Predefined alert configuration errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrTriggerSync   = errors.New("alert saved but triggers could not be synchronized")
)

// ReferenceType is the kind of entity an alert is attached to.
type ReferenceType string

const (
	ReferenceTypeAPI ReferenceType = "API"
)

// Type is the kind of condition an alert watches.
type Type string

const (
	TypeHealthCheck Type = "HEALTH_CHECK"
	TypeRequest     Type = "REQUEST"
)

// Alert is an alert configuration attached to a reference.
type Alert struct {
	ID            string        `json:"id"`
	ReferenceType ReferenceType `json:"referenceType"`
	ReferenceID   string        `json:"referenceId"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Type          Type          `json:"type"`
	Enabled       bool          `json:"enabled"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsHealthCheck reports whether the alert watches endpoint health.
func (a *Alert) IsHealthCheck() bool {
	return a.Type == TypeHealthCheck
}
