package security

import (
	"errors"
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/aq2208/campuspay-terminal/configs"
)

var ErrBadOperator = errors.New("invalid operator credentials")

// Operator is a client of the terminal API (kiosk UI, finance desk).
type Operator struct {
	ID    string
	Perms []string
}

func (o Operator) Has(perm string) bool { return slices.Contains(o.Perms, perm) }

type operatorEntry struct {
	hash    []byte
	perms   []string
	enabled bool
}

// Operators authenticates operator id/secret pairs against bcrypt hashes.
type Operators struct {
	byID map[string]operatorEntry
}

func NewOperators(list []configs.Operator) *Operators {
	m := make(map[string]operatorEntry, len(list))
	for _, o := range list {
		m[o.ID] = operatorEntry{hash: []byte(o.SecretHash), perms: o.Perms, enabled: o.Enabled}
	}
	return &Operators{byID: m}
}

// dummyHash keeps the timing of unknown ids close to known ones.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoO5M0Hk4b1M0.9Zb2YIhj0LzGqPZQq2Ba")

func (r *Operators) Authenticate(id, secret string) (Operator, error) {
	e, ok := r.byID[id]
	if !ok || !e.enabled || len(e.hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return Operator{}, ErrBadOperator
	}
	if err := bcrypt.CompareHashAndPassword(e.hash, []byte(secret)); err != nil {
		return Operator{}, ErrBadOperator
	}
	return Operator{ID: id, Perms: append([]string(nil), e.perms...)}, nil
}

// HashSecret produces the value to put in security.operators[].secret_hash.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(h), err
}
