package domain

import "time"

// Resident is an account allowed to drive the gates of its colonia. A
// resident with revoked access keeps read access but cannot issue gate
// commands from the app; visitor passes redeem independently of the issuing
// resident's standing.
type Resident struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	HouseID       string    `json:"house_id"`
	ColoniaID     string    `json:"colonia_id"`
	AccessRevoked bool      `json:"access_revoked"`
	CreatedAt     time.Time `json:"created_at"`
}
