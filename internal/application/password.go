package application

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretCost is the bcrypt cost used when none is configured.
const DefaultSecretCost = 10

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashSecret hashes an API token secret with bcrypt.
func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultSecretCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret compares a secret with its stored bcrypt hash in constant time.
func VerifySecret(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrUnauthenticated
		}
		return err
	}
	return nil
}

// RandomString returns n characters drawn uniformly from [a-zA-Z0-9].
func RandomString(n int) (string, error) {
	if n <= 0 {
		n = 16
	}
	max := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}
