package apis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatewayplane/gatewayplane/internal/apis"
)

func TestEndpoint_HealthCheckEnabled(t *testing.T) {
	tests := []struct {
		name     string
		endpoint apis.Endpoint
		want     bool
	}{
		{"http without config", apis.Endpoint{Type: apis.EndpointTypeHTTP}, true},
		{"http enabled", apis.Endpoint{Type: apis.EndpointTypeHTTP, HealthCheck: &apis.HealthCheck{Enabled: true}}, true},
		{"http disabled", apis.Endpoint{Type: apis.EndpointTypeHTTP, HealthCheck: &apis.HealthCheck{Enabled: false}}, false},
		{"tcp ignores config", apis.Endpoint{Type: apis.EndpointTypeTCP, HealthCheck: &apis.HealthCheck{Enabled: false}}, true},
		{"grpc without config", apis.Endpoint{Type: apis.EndpointTypeGRPC}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.endpoint.HealthCheckEnabled())
		})
	}
}

func TestAPI_OwnerEmail(t *testing.T) {
	api := testAPI("petstore")
	assert.Equal(t, "owner@example.com", api.OwnerEmail())

	api.PrimaryOwner.Email = nil
	assert.Empty(t, api.OwnerEmail())
}

func TestAPI_Clone(t *testing.T) {
	api := testAPI("petstore")
	clone := api.Clone()

	clone.Proxy.Groups[0].Endpoints[0].HealthCheck.Enabled = false
	clone.Proxy.Groups[0].Name = "changed"
	*clone.PrimaryOwner.Email = "other@example.com"

	assert.True(t, api.Proxy.Groups[0].Endpoints[0].HealthCheck.Enabled)
	assert.Equal(t, "default", api.Proxy.Groups[0].Name)
	assert.Equal(t, "owner@example.com", api.OwnerEmail())
}
