// Package audit implements async delivery of security events: credential checks, rate
// limit denials, user registration, refresh-token creation and token minting.
//
// # Components
//
//   - [Sink] receives events (channel, JSON writer, no-op).
//   - [Dispatcher] is a buffered relay that either drops or blocks when full.
//   - [Event] carries timestamp, type, user, refresh-token id, client address, metadata.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which events to
// emit; the engine and flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import the root dia package or any sibling internal package.
//   - Record passwords, password hashes or token strings.
package audit
