// Package clientip resolves the network address of a caller for use as a rate-limit
// identifier when no authenticated identity exists.
//
// # Trust boundary
//
// The forwarded header is believed unconditionally. That is only safe when every request
// reaches the service through a reverse proxy that strips or overwrites the header;
// otherwise any client can pick its own rate-limit identity. This package cannot check
// that, so it is a deployment requirement. Set [Resolver.Header] to "" when the service
// is exposed directly.
//
// # Resolution order
//
//  1. A present, non-blank header must parse as an IP address or IP:port; a header that
//     does not parse fails with [ErrMalformed] instead of falling back, so a misconfigured
//     proxy is noticed.
//  2. Without the header, the connection peer address is used.
//  3. With neither, resolution fails with [ErrUnavailable].
package clientip
