package models

import "strings"

// Second-factor mechanism identifiers as reported by the server in
// auth_type / real_auth_type. The enumeration is owned by the server; the
// client only special-cases the code-normalization behavior of a few types.
const (
	AuthTypeNone          = 0
	AuthTypeYubikey       = 1
	AuthTypeEmail         = 2
	AuthTypeSMS           = 4
	AuthTypeAuthenticator = 5
)

// TwoFactor is a second-factor credential supplied with a login attempt.
// A bare code (Type zero) is accepted for callers that do not know the
// mechanism; a typed pair must carry a positive mechanism id.
type TwoFactor struct {
	Type int    `json:"type"`
	Code string `json:"code"`
}

// Valid reports whether the credential satisfies the login precondition:
// a non-empty code of at most 255 characters, and a positive type when one
// is given at all.
func (t TwoFactor) Valid() bool {
	if t.Code == "" || len(t.Code) > 255 {
		return false
	}
	return t.Type >= 0
}

// NormalizedCode returns the code to submit to the server. Email, SMS and
// authenticator-app codes are entered by hand and are case-normalized to
// uppercase before submission; every other type passes through verbatim.
func (t TwoFactor) NormalizedCode() string {
	switch t.Type {
	case AuthTypeEmail, AuthTypeSMS, AuthTypeAuthenticator:
		return strings.ToUpper(t.Code)
	}
	return t.Code
}
