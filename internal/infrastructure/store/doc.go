// Package store provides the panel's persistent settings storage.
//
// Settings are opaque string key/value pairs: hub credentials, the
// overlay enable flag, and UI preferences all live here. The primary
// implementation is SQLite-backed; an in-memory variant exists for
// tests and ephemeral deployments.
//
// The Store interface is deliberately narrow. Callers treat it as an
// asynchronous key/value facility and never see SQL. Missing keys are
// reported with ErrKeyNotFound so callers can distinguish "unset" from
// a storage failure.
package store
