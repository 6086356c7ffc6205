// Package auth establishes user identities and keeps them alive across
// requests.
//
// Two strategies produce an identity: Local (username/password checked
// against the store) and Google (OAuth authorization-code flow). Either
// way the result is handed to Sessions, which mints a random opaque token,
// remembers token -> user id server side, and plants the token in an
// HttpOnly cookie. Tokens expire with the token store's life window, so a
// forgotten logout does not leave an immortal session behind.
package auth
