package store

import "context"

// ProbeResult reports the outcome of a cache probe as data. A miss and
// a probe failure are both non-hits; Cause distinguishes them for
// logging, never for control flow.
type ProbeResult struct {
	// Hit is true when the object exists (and, for fetching probes,
	// was retrieved).
	Hit bool

	// Payload holds the object bytes for fetching probes. Nil for
	// existence-only probes.
	Payload []byte

	// Cause carries the underlying error on a non-hit, including a
	// plain not-found.
	Cause error
}

// Probe checks for an object at loc. When fetch is true the payload is
// retrieved; otherwise only existence is checked. Any failure, whether
// not-found or transient, yields a non-hit result carrying the cause.
func (c *Client) Probe(ctx context.Context, loc Location, fetch bool) ProbeResult {
	if fetch {
		data, err := c.Get(ctx, loc)
		if err != nil {
			return ProbeResult{Cause: err}
		}
		return ProbeResult{Hit: true, Payload: data}
	}
	if err := c.Head(ctx, loc); err != nil {
		return ProbeResult{Cause: err}
	}
	return ProbeResult{Hit: true}
}
