package auth

// Credential is the per-request credential context produced by the auth
// middleware. It is threaded explicitly into every repository call for the
// request it belongs to. It must never be stored on a shared client: two
// in-flight requests for different users would corrupt each other's session.
type Credential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}
