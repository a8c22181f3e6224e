package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/harivignesh/cp-tracker/internal/usecase"
)

// StaticVerifier checks bearer tokens against one configured API token.
// Token issuance lives outside this system; operators hand the token out of
// band.
type StaticVerifier struct {
	token string
}

func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: strings.TrimSpace(token)}
}

func (v *StaticVerifier) VerifyAccessToken(_ context.Context, token string) error {
	if v.token == "" {
		return fmt.Errorf("%w: api token is not configured", usecase.ErrDependencyUnavailable)
	}
	if subtle.ConstantTimeCompare([]byte(v.token), []byte(strings.TrimSpace(token))) != 1 {
		return fmt.Errorf("%w: invalid api token", usecase.ErrUnauthorized)
	}
	return nil
}
