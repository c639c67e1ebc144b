package types

// TokenResponse is the JSON body returned by a registry's authorization
// server in response to a token exchange request.
type TokenResponse struct {
	// Token is the opaque bearer token granting pull access for the
	// requested scope.
	Token string `json:"token"`
}
