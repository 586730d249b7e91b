package apiclient

import "time"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Time    int64  `json:"time"`
}

type HoldingsResponse struct {
	Cached    bool          `json:"cached"`
	Source    string        `json:"source"`
	FetchedAt int64         `json:"fetched_at"`
	Count     int           `json:"count"`
	Items     []HoldingItem `json:"items"`
}

// FetchedTime returns FetchedAt, given in epoch seconds, in UTC.
func (r HoldingsResponse) FetchedTime() time.Time {
	return time.Unix(r.FetchedAt, 0).UTC()
}

type HoldingItem struct {
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
}
