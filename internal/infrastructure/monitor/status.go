package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	EventLog   bool      `json:"event_log"`
	Events     int       `json:"events"`
	LastCheck  time.Time `json:"last_check"`
}
