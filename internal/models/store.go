package models

type Store struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AvgPrepMinutes int      `json:"avg_prep_minutes"` // Average preparation time in minutes
	Address        string   `json:"address"`
	Location       Location `json:"location"`
}
