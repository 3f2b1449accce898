// Package mqttbridge republishes hub state onto an MQTT broker.
//
// The bridge mirrors two things: the panel's own hub connectivity
// (online/offline, retained, with a Last Will for unexpected drops) and
// individual entity state changes as they arrive from the hub. Other
// services on the broker can follow the home's state without speaking
// the hub's WebSocket protocol.
//
// Topic scheme:
//
//	glpanel/status                   retained bridge/hub status
//	glpanel/state/{entity_id}        retained latest entity state
//
// The bridge is strictly one-way. It never subscribes, and it never
// writes back to the hub.
package mqttbridge
