// Package apis provides the API definition directory for the gateway management plane.
package apis

import (
	"errors"
	"time"
)

// Predefined API errors.
var (
	ErrAPINotFound      = errors.New("api not found")
	ErrAPIAlreadyExists = errors.New("api already exists")
)

// State represents the lifecycle state of an API on the gateway.
type State string

const (
	StateStarted State = "STARTED"
	StateStopped State = "STOPPED"
)

// EndpointType identifies the backend protocol of an endpoint.
type EndpointType string

const (
	EndpointTypeHTTP EndpointType = "http"
	EndpointTypeGRPC EndpointType = "grpc"
	EndpointTypeTCP  EndpointType = "tcp"
)

// API is an API definition managed by the gateway.
type API struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Description  string    `json:"description,omitempty"`
	State        State     `json:"state"`
	Proxy        Proxy     `json:"proxy"`
	PrimaryOwner Owner     `json:"primaryOwner"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Proxy holds the backend routing configuration of an API.
type Proxy struct {
	ContextPath string          `json:"contextPath"`
	Groups      []EndpointGroup `json:"groups"`
}

// EndpointGroup is a named set of backend endpoints.
type EndpointGroup struct {
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is a single backend target.
type Endpoint struct {
	Name        string       `json:"name"`
	Target      string       `json:"target"`
	Type        EndpointType `json:"type"`
	HealthCheck *HealthCheck `json:"healthcheck,omitempty"`
}

// HealthCheck is the per-endpoint health check configuration.
// Only HTTP endpoints honour it.
type HealthCheck struct {
	Enabled bool `json:"enabled"`
}

// Owner is the user administratively responsible for an API.
type Owner struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Email       *string `json:"email,omitempty"`
}

// SupportsHealthCheck reports whether the endpoint type carries health check configuration.
func (e Endpoint) SupportsHealthCheck() bool {
	return e.Type == EndpointTypeHTTP
}

// HealthCheckEnabled reports whether the endpoint is subject to health checking.
// Endpoints without a configuration, or whose type has none, default to enabled.
func (e Endpoint) HealthCheckEnabled() bool {
	if !e.SupportsHealthCheck() || e.HealthCheck == nil {
		return true
	}
	return e.HealthCheck.Enabled
}

// OwnerEmail returns the primary owner's email, or "" when none is configured.
func (a *API) OwnerEmail() string {
	if a.PrimaryOwner.Email == nil {
		return ""
	}
	return *a.PrimaryOwner.Email
}

// Clone returns a deep copy of the API.
func (a *API) Clone() *API {
	c := *a
	c.Proxy.Groups = make([]EndpointGroup, len(a.Proxy.Groups))
	for i, g := range a.Proxy.Groups {
		c.Proxy.Groups[i] = EndpointGroup{Name: g.Name}
		if g.Endpoints == nil {
			continue
		}
		c.Proxy.Groups[i].Endpoints = make([]Endpoint, len(g.Endpoints))
		for j, ep := range g.Endpoints {
			if ep.HealthCheck != nil {
				hc := *ep.HealthCheck
				ep.HealthCheck = &hc
			}
			c.Proxy.Groups[i].Endpoints[j] = ep
		}
	}
	if a.PrimaryOwner.Email != nil {
		email := *a.PrimaryOwner.Email
		c.PrimaryOwner.Email = &email
	}
	return &c
}
