package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/desertthunder/spotsync/internal/shared"
)

const (
	MinVerifierLength = 43
	MaxVerifierLength = 128

	// ChallengeMethod is the only PKCE transform sent to the authorization server.
	ChallengeMethod = "S256"

	verifierFirst byte = 'a'
	verifierLast  byte = 'z'
)

// Challenge is one PKCE verifier and the challenge derived from it.
type Challenge struct {
	Verifier  string
	Challenge string
}

// Generator produces [Challenge] values from a source of randomness.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r, or from [crypto/rand.Reader] when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// GenerateChallenge creates a fresh challenge from the system's secure random source.
func GenerateChallenge() (Challenge, error) {
	return NewGenerator(nil).Generate()
}

// Generate draws a verifier length in [MinVerifierLength, MaxVerifierLength], fills it with letters
// from 'a' to 'z' and derives the challenge.
//
// The only failure is the random source being unusable, reported as [shared.ErrCryptoUnavailable].
func (g *Generator) Generate() (Challenge, error) {
	n, err := g.intn(MaxVerifierLength - MinVerifierLength + 1)
	if err != nil {
		return Challenge{}, err
	}

	verifier := make([]byte, MinVerifierLength+n)
	span := int(verifierLast-verifierFirst) + 1
	for i := range verifier {
		c, err := g.intn(span)
		if err != nil {
			return Challenge{}, err
		}
		verifier[i] = verifierFirst + byte(c)
	}

	return Challenge{
		Verifier:  string(verifier),
		Challenge: DeriveChallenge(string(verifier)),
	}, nil
}

// intn returns a uniform value in [0, n).
func (g *Generator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrCryptoUnavailable, err)
	}
	return int(v.Int64()), nil
}

// DeriveChallenge computes the S256 challenge for verifier.
func DeriveChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	encoded := base64.URLEncoding.EncodeToString(sum[:])
	return strings.TrimRight(encoded, "=\n\r ")
}
