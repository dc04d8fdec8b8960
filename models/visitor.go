package models

// Visitor identifies the browser a request came from. TabID scopes the payload
// cache; ProfileID scopes durable markers.
type Visitor struct {
	TabID     string `json:"tabId"`
	ProfileID string `json:"profileId"`
}
