package auth

import (
	"crypto/sha256"
	"sync"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/identity"
)

// APIKeyInfo describes an integration key from configuration.
type APIKeyInfo struct {
	Name    string
	Role    identity.Role
	Enabled bool
}

// Actor returns the identity an API key acts as.
func (i *APIKeyInfo) Actor() identity.Actor {
	return identity.Actor{ID: "key:" + i.Name, Type: identity.ActorAPIKey, Role: i.Role, Name: i.Name}
}

// APIKeyValidator validates API keys against the configured set of keys.
// Keys are indexed by their SHA-256 digest so the raw key is not kept as a
// map key.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte]*APIKeyInfo
}

// NewAPIKeyValidator creates a validator for the configured keys.
func NewAPIKeyValidator(keys []config.APIKeyConfig) *APIKeyValidator {
	v := &APIKeyValidator{}
	v.Replace(keys)
	return v
}

// Replace swaps the key set, typically after a configuration reload.
func (v *APIKeyValidator) Replace(keys []config.APIKeyConfig) {
	m := make(map[[sha256.Size]byte]*APIKeyInfo, len(keys))
	for _, k := range keys {
		m[sha256.Sum256([]byte(k.Key))] = &APIKeyInfo{
			Name:    k.Name,
			Role:    identity.Role(k.Role),
			Enabled: k.Enabled,
		}
	}

	v.mu.Lock()
	v.keys = m
	v.mu.Unlock()
}

// Validate checks if the given API key is valid and returns its info.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	info, ok := v.keys[sha256.Sum256([]byte(key))]
	v.mu.RUnlock()

	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	if !info.Enabled {
		return nil, apperr.ErrUnauthorized
	}
	return info, nil
}

// Count returns the number of configured keys.
func (v *APIKeyValidator) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}
