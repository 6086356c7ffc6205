// Package store persists user accounts and audit events in a sqlite
// database.
//
// An account carries at most two login paths: a username plus an
// argon2id-hashed password, a google subject id, or both. Passwords never
// touch the database, only the stretched hash and its per-record salt.
// Uniqueness of usernames and google ids is enforced by the database
// itself, not by in-process locks, so the same store file can be shared
// by concurrent server instances.
package store
