// Package httpapi serves the engine over JSON and net/http.
//
// Every route runs behind panic recovery, request logging, client address resolution
// and the General rate limit. Register, refresh-token creation and listing charge their
// own group inside the engine as well.
//
// # What this package must NOT do
//
//   - Echo infrastructure error text to clients.
//   - Tell an unknown username apart from a wrong password in a response.
package httpapi
