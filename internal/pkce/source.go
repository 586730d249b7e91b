package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const MethodS256 = "S256"

const (
	stateBytes    = 16
	verifierBytes = 64
	browserIDLen  = 32
)

const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// RandomString returns n random bytes from crypto/rand, hex encoded.
func RandomString(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("negative length: %d", n)
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// CodeChallenge derives the S256 challenge for the verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

type Source struct{}

func (p Source) State() (string, error) {
	return RandomString(stateBytes)
}

func (p Source) Verifier() (string, error) {
	return RandomString(verifierBytes)
}

func (p Source) PKCE() (PKCE, error) {
	verifier, err := p.Verifier()
	if err != nil {
		return PKCE{}, err
	}

	return PKCE{
		Verifier:  verifier,
		Challenge: CodeChallenge(verifier),
		Method:    MethodS256,
	}, nil
}

func (p Source) BrowserID() string {
	return p.randString(browserIDLen) // Entropy E = L * log2(63) = 32 * log2(63) = 191.3 bits
}

// ValidBrowserID reports whether id could have been produced by BrowserID.
func ValidBrowserID(id string) bool {
	if len(id) != browserIDLen {
		return false
	}
	for i := range len(id) {
		if !isLetter(id[i]) {
			return false
		}
	}

	return true
}

func (p Source) randString(n int) string {
	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		ret[i] = letters[num.Int64()]
	}

	return string(ret)
}

func isLetter(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '-'
}
