package auth

import "context"

// Credential is what a data store request is sent with: the project API key
// and the bearer token that decides row access.
type Credential struct {
	APIKey string
	Bearer string
}

// CredentialProvider resolves the credential for a request context.
type CredentialProvider interface {
	Credential(ctx context.Context) Credential
}

// KeyProvider resolves credentials from configured keys. Background work
// uses the service key, user requests use their session token, and anything
// else falls back to the anonymous key.
type KeyProvider struct {
	AnonKey    string
	ServiceKey string
}

// Credential implements CredentialProvider.
func (p KeyProvider) Credential(ctx context.Context) Credential {
	if IsServiceRole(ctx) && p.ServiceKey != "" {
		return Credential{APIKey: p.ServiceKey, Bearer: p.ServiceKey}
	}
	if s, ok := SessionFrom(ctx); ok && s.Token != "" {
		return Credential{APIKey: p.AnonKey, Bearer: s.Token}
	}
	return Credential{APIKey: p.AnonKey, Bearer: p.AnonKey}
}
