// Package chat mints server-side tokens for the hosted chat/video
// provider. The provider accepts HS256 JWTs signed with the app secret and
// carrying the user id; message delivery and calling happen entirely
// between the client SDK and the provider.
package chat

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Provider holds the app credentials issued by the chat service.
type Provider struct {
	apiKey    string
	apiSecret []byte
}

// NewProviderFromEnv reads CHAT_API_KEY and CHAT_API_SECRET.
func NewProviderFromEnv() (*Provider, error) {
	key := os.Getenv("CHAT_API_KEY")
	secret := os.Getenv("CHAT_API_SECRET")
	if key == "" || secret == "" {
		return nil, fmt.Errorf("CHAT_API_KEY and CHAT_API_SECRET must be set")
	}
	return &Provider{apiKey: key, apiSecret: []byte(secret)}, nil
}

// APIKey is the public key the client SDK initializes with.
func (p *Provider) APIKey() string {
	return p.apiKey
}

// UserToken signs a token the client exchanges with the provider to connect
// as userID. Provider tokens carry no expiry; the provider revokes by user.
func (p *Provider) UserToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
	})
	return token.SignedString(p.apiSecret)
}
