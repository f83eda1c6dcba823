// Package notifications delivers import and scan events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-category toggles let users silence import or scan chatter while
// keeping error alerts.
//
// Extend this package if you need alternative transports; all callers
// depend only on the simple Service interface.
package notifications
