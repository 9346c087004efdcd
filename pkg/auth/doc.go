// Package auth authenticates depot users and integrations.
//
// People log in with email and password (bcrypt hashes) and receive an
// HS256 session token. Integrations use API keys from configuration, each
// bound to a role. Either way the request ends up with an identity.Actor in
// its context.
package auth
