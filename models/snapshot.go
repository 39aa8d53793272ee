package models

import "time"

// PayloadSnapshot is the locally cached copy of the last wallet payload
// seen by this client. The payload is stored exactly as received from the
// server, still encrypted, so the cache never holds plaintext secrets.
type PayloadSnapshot struct {
	GUID      string    `json:"guid" db:"guid"`
	Payload   string    `json:"payload" db:"payload"`
	Checksum  string    `json:"checksum" db:"checksum"`
	Language  string    `json:"language" db:"language"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
