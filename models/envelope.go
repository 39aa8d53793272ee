package models

// Envelope is the parsed form of the encrypted wallet blob as stored on the
// server. Version 1 is the legacy unversioned format: the raw server payload
// is the ciphertext as-is and no KDF parameters are carried. Version 2 and
// above wrap the ciphertext in a JSON object together with the PBKDF2
// iteration count.
type Envelope struct {
	// Version of the payload format. 1 = legacy raw blob, >=2 = versioned
	// JSON wrapper. Version 3 marks a wallet upgraded to HD derivation.
	Version int `json:"version"`

	// Iterations is the PBKDF2 iteration count used to derive the
	// encryption key from the user password. Defaults to 5000 when the
	// wrapper omits it.
	Iterations int `json:"pbkdf2_iterations"`

	// Ciphertext is the opaque encrypted wallet body.
	Ciphertext string `json:"payload"`
}

const (
	// DefaultIterations is assumed when a versioned wrapper carries no
	// iteration count, and for legacy version-1 payloads.
	DefaultIterations = 5000

	// DefaultVersion is assumed when a versioned wrapper carries no
	// version tag.
	DefaultVersion = 3

	// LegacyVersion marks a payload that could not be parsed as a
	// versioned wrapper.
	LegacyVersion = 1
)
