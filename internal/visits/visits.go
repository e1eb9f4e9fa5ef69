// Package visits holds the wire contract shared by the visit counter server and
// its clients.
package visits

const (
	// Path is the HTTP resource serving the count. GET reads, POST increments.
	Path = "/api/visits"

	// Key is the backing store key holding the count.
	Key = "portfolio:visits"

	// SessionKey is the client session flag set once a session has been counted.
	SessionKey = "portfolio:visitorCounted"
)

// Response is the body of every successful GET or POST on Path.
type Response struct {
	Count int64 `json:"count"`
}
