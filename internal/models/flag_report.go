package models

import "time"

// FlagReport is an append-only record of one flag action.
type FlagReport struct {
	ID            string    `db:"id" json:"id"`
	MaterialID    string    `db:"material_id" json:"materialId"`
	MaterialTitle string    `db:"material_title" json:"materialTitle"`
	Reason        string    `db:"reason" json:"reason"`
	Timestamp     time.Time `db:"reported_at" json:"timestamp"`
	Reporter      string    `db:"reporter" json:"reporter"`
}
