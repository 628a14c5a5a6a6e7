package auth

import "context"

// Verifier checks an access token against the identity provider and returns
// the token's subject id.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (string, error)
}
