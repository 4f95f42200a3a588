package apis_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/apis"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []apis.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event apis.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []apis.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]apis.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testAPI(id string) *apis.API {
	email := "owner@example.com"
	return &apis.API{
		ID:      id,
		Name:    "Pet Store",
		Version: "1.0",
		Proxy: apis.Proxy{
			ContextPath: "/petstore",
			Groups: []apis.EndpointGroup{{
				Name: "default",
				Endpoints: []apis.Endpoint{{
					Name:        "primary",
					Target:      "https://backend.example.com",
					Type:        apis.EndpointTypeHTTP,
					HealthCheck: &apis.HealthCheck{Enabled: true},
				}},
			}},
		},
		PrimaryOwner: apis.Owner{ID: "owner-1", DisplayName: "Owner", Email: &email},
	}
}

func newService() (*apis.Service, *recordingPublisher) {
	publisher := &recordingPublisher{}
	return apis.NewService(apis.ServiceConfig{
		Repository: apis.NewInMemoryRepository(),
		Publisher:  publisher,
		Logger:     zerolog.Nop(),
	}), publisher
}

func TestService_Create(t *testing.T) {
	svc, publisher := newService()

	api := testAPI("")
	created, err := svc.Create(context.Background(), api)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.ID, "pet-store-"), "id %q derived from name", created.ID)
	assert.Equal(t, apis.StateStopped, created.State)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, []apis.EventType{apis.EventCreate}, publisher.types())
}

func TestService_CreateDuplicate(t *testing.T) {
	svc, publisher := newService()

	_, err := svc.Create(context.Background(), testAPI("petstore"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), testAPI("petstore"))
	assert.ErrorIs(t, err, apis.ErrAPIAlreadyExists)
	assert.Len(t, publisher.types(), 1)
}

func TestService_Update(t *testing.T) {
	svc, publisher := newService()

	created, err := svc.Create(context.Background(), testAPI("petstore"))
	require.NoError(t, err)

	changed := testAPI("petstore")
	changed.Version = "2.0"
	updated, err := svc.Update(context.Background(), changed)
	require.NoError(t, err)

	assert.Equal(t, "2.0", updated.Version)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, apis.StateStopped, updated.State, "state kept when omitted")
	assert.Equal(t, []apis.EventType{apis.EventCreate, apis.EventUpdate}, publisher.types())

	publisher.mu.Lock()
	event := publisher.events[1]
	publisher.mu.Unlock()
	require.NotNil(t, event.API)
	assert.Equal(t, "2.0", event.API.Version)
	assert.NotEmpty(t, event.ID)
}

func TestService_UpdateNotFound(t *testing.T) {
	svc, publisher := newService()

	_, err := svc.Update(context.Background(), testAPI("missing"))
	assert.ErrorIs(t, err, apis.ErrAPINotFound)
	assert.Empty(t, publisher.types())
}

func TestService_EventCarriesCopy(t *testing.T) {
	svc, publisher := newService()

	api := testAPI("petstore")
	_, err := svc.Create(context.Background(), api)
	require.NoError(t, err)

	api.Proxy.Groups[0].Endpoints[0].Name = "mutated"

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, "primary", publisher.events[0].API.Proxy.Groups[0].Endpoints[0].Name)
}

func TestService_StartStop(t *testing.T) {
	svc, publisher := newService()

	_, err := svc.Create(context.Background(), testAPI("petstore"))
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), "petstore")
	require.NoError(t, err)
	assert.Equal(t, apis.StateStarted, started.State)

	stopped, err := svc.Stop(context.Background(), "petstore")
	require.NoError(t, err)
	assert.Equal(t, apis.StateStopped, stopped.State)

	assert.Equal(t, []apis.EventType{apis.EventCreate, apis.EventStart, apis.EventStop}, publisher.types())

	_, err = svc.Start(context.Background(), "missing")
	assert.ErrorIs(t, err, apis.ErrAPINotFound)
}

func TestService_Delete(t *testing.T) {
	svc, publisher := newService()

	_, err := svc.Create(context.Background(), testAPI("petstore"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "petstore"))

	_, err = svc.FindByID(context.Background(), "petstore")
	assert.ErrorIs(t, err, apis.ErrAPINotFound)
	assert.Equal(t, []apis.EventType{apis.EventCreate, apis.EventDelete}, publisher.types())

	assert.ErrorIs(t, svc.Delete(context.Background(), "petstore"), apis.ErrAPINotFound)
}

func TestService_WithoutPublisher(t *testing.T) {
	svc := apis.NewService(apis.ServiceConfig{
		Repository: apis.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	_, err := svc.Create(context.Background(), testAPI("petstore"))
	require.NoError(t, err)

	all, err := svc.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
