package models

// APIRequest is the request body for creating or replacing an API definition.
type APIRequest struct {
	ID           string       `json:"id,omitempty" validate:"omitempty,max=64,excludesall=/:"`
	Name         string       `json:"name" validate:"required,max=128"`
	Version      string       `json:"version" validate:"required,max=32"`
	Description  string       `json:"description,omitempty" validate:"max=1024"`
	Proxy        ProxyRequest `json:"proxy"`
	PrimaryOwner OwnerRequest `json:"primaryOwner"`
}

// ProxyRequest is the backend routing configuration of an API.
type ProxyRequest struct {
	ContextPath string                 `json:"contextPath" validate:"required,startswith=/"`
	Groups      []EndpointGroupRequest `json:"groups" validate:"dive"`
}

// EndpointGroupRequest is a named set of endpoints.
type EndpointGroupRequest struct {
	Name      string            `json:"name" validate:"required"`
	Endpoints []EndpointRequest `json:"endpoints" validate:"dive"`
}

// EndpointRequest is a single backend target.
type EndpointRequest struct {
	Name        string              `json:"name" validate:"required"`
	Target      string              `json:"target" validate:"required"`
	Type        string              `json:"type" validate:"required,oneof=http grpc tcp"`
	HealthCheck *HealthCheckRequest `json:"healthcheck,omitempty"`
}

// HealthCheckRequest toggles health checking of an HTTP endpoint.
type HealthCheckRequest struct {
	Enabled bool `json:"enabled"`
}

// OwnerRequest identifies the primary owner of an API.
type OwnerRequest struct {
	ID          string  `json:"id" validate:"required"`
	DisplayName string  `json:"displayName" validate:"required"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
}
