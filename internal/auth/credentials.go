package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrCredentialMismatch is returned when a password does not match.
var ErrCredentialMismatch = errors.New("credential mismatch")

// Verifier isolates credential storage and comparison. The stored form is
// whatever Encode produced, so swapping schemes never touches call sites.
type Verifier interface {
	// Encode transforms a plaintext password into its stored form.
	Encode(plain string) (string, error)
	// Compare checks plaintext against the stored form.
	Compare(stored, plain string) error
}

// NewVerifier selects a verifier by scheme name. "plain" stores and compares
// credentials verbatim; "bcrypt" hashes credentials. Unknown schemes fall
// back to plain.
func NewVerifier(scheme string, bcryptCost int) Verifier {
	if scheme == "bcrypt" {
		return bcryptVerifier{cost: bcryptCost}
	}
	return plainVerifier{}
}

// plainVerifier stores passwords verbatim, matching the existing user table
// contents; kept behind the interface so a deployment can opt into bcrypt
// without data-model changes.
type plainVerifier struct{}

func (plainVerifier) Encode(plain string) (string, error) {
	return plain, nil
}

func (plainVerifier) Compare(stored, plain string) error {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) != 1 {
		return ErrCredentialMismatch
	}
	return nil
}

type bcryptVerifier struct {
	cost int
}

func (v bcryptVerifier) Encode(plain string) (string, error) {
	cost := v.cost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (v bcryptVerifier) Compare(stored, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)); err != nil {
		return ErrCredentialMismatch
	}
	return nil
}
