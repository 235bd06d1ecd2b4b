// Package session tracks which refresh tokens are live for each user.
//
// # Layout
//
// Each user owns one sorted set, <prefix>:refresh:<user>, whose members are
// refresh-token jti values scored by creation time in Unix microseconds. The
// key expires one refresh lifetime after the latest insert.
//
// [Store.Add] holds <prefix>:lock:refresh_tokens:<user> while it inserts,
// counts and evicts the oldest members, so a user never keeps more than
// MaxSessions live sessions. [Store.RemoveAllExcept] holds the separate key
// <prefix>:lock:change_password:<user>. The two scopes are disjoint, so a
// sign-in racing a password change may or may not survive it.
//
// [MemoryStore] offers the same contract in-process for tests and single-node
// deployments.
//
// This package does not decode tokens or check passwords.
package session
