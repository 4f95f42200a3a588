// Package alert coordinates health-check alert triggers for API endpoints.
//
// A trigger is registered with the alert engine once per (API, endpoint group, endpoint)
// whose health check is enabled, and cancelled when alerting for the API is switched off.
// The Coordinator remembers which triggers it has sent so that repeated API updates do not
// register the same trigger twice.
package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TriggerName is the display name of every health-check trigger.
const TriggerName = "HC status transition alerts"

// NotificationTypeEmail is the notification type used for owner alerts.
const NotificationTypeEmail = "email"

// conditionFormat is the alert engine query matching health-check facts for one endpoint.
// The alert engine matches on this exact text, including the ['Endpoint name'] accessor.
const conditionFormat = "$[?(@.type == 'HC' && @.props.API == '%s'" +
	" && @.props['Endpoint group name'] == '%s' && @.props.['Endpoint name'] == '%s')]"

// detailsPathFormat is appended to the portal URL to link to an API's health dashboard.
const detailsPathFormat = "/#!/management/apis/%s/healthcheck/"

// Trigger is a message registering or cancelling an alert condition on the alert engine.
type Trigger struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	Condition      string         `json:"condition,omitempty"`
	ViewDetailsURL string         `json:"viewDetailsUrl,omitempty"`
	Cancel         bool           `json:"cancel"`
	Notifications  []Notification `json:"notifications,omitempty"`
}

// Notification tells the alert engine where to deliver an alert.
type Notification struct {
	Type              string `json:"type"`
	Destination       string `json:"destination"`
	JSONConfiguration string `json:"jsonConfiguration"`
}

// EmailSettings are the email notifier settings forwarded to the alert engine.
type EmailSettings struct {
	Host                string
	Port                string
	Username            string
	Password            string
	From                string
	StartTLSEnabled     bool
	SSLTrustAll         bool
	SSLKeyStore         *string
	SSLKeyStorePassword *string
}

// Settings is the process-wide configuration used to build triggers.
type Settings struct {
	PortalURL string
	Email     EmailSettings
}

// emailConfiguration is the JSON layout the alert engine's email notifier expects.
type emailConfiguration struct {
	From                string  `json:"from"`
	Host                string  `json:"host"`
	Port                string  `json:"port"`
	Username            string  `json:"username"`
	Password            string  `json:"password"`
	StartTLSEnabled     bool    `json:"startTLSEnabled"`
	SSLTrustAll         bool    `json:"sslTrustAll"`
	SSLKeyStore         *string `json:"sslKeyStore"`
	SSLKeyStorePassword *string `json:"sslKeyStorePassword"`
}

// JSON renders the settings as an email notifier configuration document.
func (s EmailSettings) JSON() (string, error) {
	data, err := json.Marshal(emailConfiguration{
		From:                s.From,
		Host:                s.Host,
		Port:                s.Port,
		Username:            s.Username,
		Password:            s.Password,
		StartTLSEnabled:     s.StartTLSEnabled,
		SSLTrustAll:         s.SSLTrustAll,
		SSLKeyStore:         s.SSLKeyStore,
		SSLKeyStorePassword: s.SSLKeyStorePassword,
	})
	if err != nil {
		return "", fmt.Errorf("marshal email configuration: %w", err)
	}
	return string(data), nil
}

// TriggerID derives the identifier of the health-check trigger for one endpoint.
// Spaces are replaced with underscores.
func TriggerID(apiID, groupName, endpointName string) string {
	return strings.ReplaceAll("HC-"+apiID+"-"+groupName+"-"+endpointName, " ", "_")
}

// Condition builds the alert engine condition for one endpoint.
func Condition(apiID, groupName, endpointName string) string {
	return fmt.Sprintf(conditionFormat, apiID, groupName, endpointName)
}

// DetailsURL links to the API's health-check page on the portal.
// A single trailing slash on the portal URL is dropped.
func DetailsURL(portalURL, apiID string) string {
	return strings.TrimSuffix(portalURL, "/") + fmt.Sprintf(detailsPathFormat, apiID)
}

// NewCancelTrigger builds the message cancelling a trigger.
func NewCancelTrigger(id string) Trigger {
	return Trigger{ID: id, Cancel: true}
}
