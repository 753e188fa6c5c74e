// Package signers derives the signing parties of a contract from its field
// set. Derivation is a merge: re-running it never duplicates or discards a
// signer that already exists.
package signers

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/gatherly/contract-esign-portal/internal/models"
)

const accessCodeLen = 6

const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I

// Derive merges the signers implied by the given fields into the existing
// list. One signer per distinct (role, email) pair; new signers start
// pending with a fresh access token, and client signers additionally get a
// short human-entry access code. Existing signers keep their tokens.
func Derive(fields []models.SignatureField, existing []models.Signer, now string) []models.Signer {
	out := make([]models.Signer, len(existing))
	copy(out, existing)

	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[key(s.Role, s.Email)] = true
	}

	for _, f := range fields {
		k := key(f.SignerRole, f.SignerEmail)
		if seen[k] {
			continue
		}
		seen[k] = true
		s := models.Signer{
			ID:          ulid.Make().String(),
			Role:        f.SignerRole,
			Email:       strings.ToLower(strings.TrimSpace(f.SignerEmail)),
			Status:      models.SignerPending,
			AccessToken: uuid.NewString(),
			InvitedAt:   now,
		}
		if f.SignerRole == models.RoleClient {
			s.AccessCode = NewAccessCode()
		}
		out = append(out, s)
	}
	return out
}

// NewAccessCode returns a fixed-length upper-case alphanumeric code used as
// a low-friction identity check for client signers without a session.
func NewAccessCode() string {
	b := make([]byte, accessCodeLen)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure is not recoverable here
	}
	for i := range b {
		b[i] = accessCodeAlphabet[int(b[i])%len(accessCodeAlphabet)]
	}
	return string(b)
}

func key(role models.SignerRole, email string) string {
	return string(role) + "|" + strings.ToLower(strings.TrimSpace(email))
}
