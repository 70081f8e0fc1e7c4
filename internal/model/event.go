package model

// ExpiredHold describes a hold reaped by the sweep (or lazily by a client
// operation) together with the seats that were returned to FREE.
type ExpiredHold struct {
	ChartKey string   `json:"chart_key"`
	Token    string   `json:"-"`
	SeatIDs  []string `json:"seat_ids"`
}
