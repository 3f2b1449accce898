package mqttbridge

import "fmt"

// TopicPrefix is the base for all panel topics.
const TopicPrefix = "glpanel"

// Topics provides builders for panel MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Status returns the retained bridge status topic.
//
// Example: glpanel/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// EntityState returns the retained state topic for an entity.
//
// Example: glpanel/state/light.kitchen_ceiling
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, entityID)
}
