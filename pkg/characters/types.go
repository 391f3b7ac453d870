// Package characters implements the character catalog extraction
// pipeline: paginated fetching of raw records and shaping into the flat
// tabular dataset.
package characters

import "encoding/json"

// Envelope is the top-level Marvel API response wrapper.
type Envelope struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Page   `json:"data"`
}

// Page is the data envelope carried on every response. Offset and Total
// are authoritative cursor state supplied by the server; the client
// never predicts Total ahead of the first call.
type Page struct {
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Total   int         `json:"total"`
	Count   int         `json:"count"`
	Results []Character `json:"results"`
}

// Character is a raw catalog record. The counter groups are kept as raw
// JSON so the shaper can tell a missing field apart from a zero count.
type Character struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Comics      json.RawMessage `json:"comics"`
	Series      json.RawMessage `json:"series"`
	Stories     json.RawMessage `json:"stories"`
	Events      json.RawMessage `json:"events"`
}

// Row is one shaped output record: the four counter groups reduced to
// their available counts, all other upstream fields dropped.
type Row struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Comics      int    `json:"comics"`
	Series      int    `json:"series"`
	Stories     int    `json:"stories"`
	Events      int    `json:"events"`
}

// Columns is the fixed output column set, in order.
var Columns = []string{"id", "name", "description", "comics", "series", "stories", "events"}
