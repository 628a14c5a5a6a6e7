package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderAccessToken  = "X-Adorable-AccessToken"
	HeaderRefreshToken = "X-Adorable-RefreshToken"
	HeaderUserID       = "X-Adorable-UserId"
	HeaderProjectID    = "X-Adorable-ProjectId"

	ctxCredential = "adorable_credential"
)

// Gate validates the caller's credential headers against the identity
// provider and requires the token subject to equal the claimed user id
// (strict equality). On success a per-request Credential is stored in the
// gin context; downstream code must pass it explicitly into repository
// calls rather than parking it on any shared client.
func Gate(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := strings.TrimSpace(c.GetHeader(HeaderAccessToken))
		if accessToken == "" {
			abortWith(c, http.StatusBadRequest, "Missing access token")
			return
		}

		refreshToken := strings.TrimSpace(c.GetHeader(HeaderRefreshToken))
		if refreshToken == "" {
			abortWith(c, http.StatusBadRequest, "Missing refresh token")
			return
		}

		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			abortWith(c, http.StatusBadRequest, "Missing user id")
			return
		}

		subject, err := verifier.Verify(c.Request.Context(), accessToken)
		if err != nil {
			abortWith(c, http.StatusForbidden, err.Error())
			return
		}

		if subject != userID {
			abortWith(c, http.StatusForbidden, "Claimed / actual user id mismatch")
			return
		}

		c.Set(ctxCredential, Credential{
			UserID:       userID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		})

		c.Next()
	}
}

// CredentialFrom returns the Credential stored by Gate for this request.
func CredentialFrom(c *gin.Context) (Credential, bool) {
	v, ok := c.Get(ctxCredential)
	if !ok {
		return Credential{}, false
	}
	cred, ok := v.(Credential)
	return cred, ok
}

func abortWith(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
	c.Abort()
}
