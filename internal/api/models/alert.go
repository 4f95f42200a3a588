package models

// AlertRequest is the request body for creating or replacing an alert configuration.
type AlertRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description,omitempty" validate:"max=1024"`
	Type        string `json:"type" validate:"required,oneof=HEALTH_CHECK REQUEST"`
	Enabled     *bool  `json:"enabled" validate:"required"`
}

// TriggerList is the response listing the registered health-check triggers.
type TriggerList struct {
	Items []string `json:"items"`
	Meta  ListMeta `json:"meta"`
}

// ResyncResult is the response of a trigger resynchronization.
type ResyncResult struct {
	ActiveTriggers int      `json:"activeTriggers"`
	Errors         []string `json:"errors,omitempty"`
}
