// Package identity derives demo account addresses from requester
// identities and mints the random credentials that go with them.
package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// ErrMalformedEmail reports a requester identity that cannot be split
// into a local part and a domain.
var ErrMalformedEmail = fmt.Errorf("requester email is malformed")

// DeriveEmail maps a requester's email to the deterministic demo
// address in the given domain: the requester's local part, lower-cased
// and stripped of every character outside [a-z0-9], at the demo domain.
func DeriveEmail(requester, domain string) (string, error) {
	at := strings.Index(requester, "@")
	if at <= 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedEmail, requester)
	}
	local := strings.ToLower(requester[:at])

	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: local part of %q has no usable characters", ErrMalformedEmail, requester)
	}
	return b.String() + "@" + domain, nil
}

const (
	passwordLength = 14

	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghijkmnpqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+"
)

// NewPassword generates a 14-character random password containing at
// least one upper-case letter, one lower-case letter, one digit and
// one symbol. The result is shuffled with a uniform Fisher-Yates
// permutation over crypto/rand.
func NewPassword() (string, error) {
	classes := []string{upperChars, lowerChars, digitChars, symbolChars}
	all := upperChars + lowerChars + digitChars + symbolChars

	buf := make([]byte, 0, passwordLength)
	for _, class := range classes {
		c, err := randomByte(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < passwordLength {
		c, err := randomByte(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates so the guaranteed class characters don't cluster at
	// the front.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func randomByte(alphabet string) (byte, error) {
	i, err := randomInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}
