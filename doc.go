// Package goSession issues, rotates and revokes bearer credentials for a
// password-authenticated account and caps how many refresh sessions one
// account may hold at a time.
//
// An [Engine] is assembled once with [New] and [Builder.Build] and is then
// safe for concurrent use. It exposes five use cases, SignUp, SignIn,
// Refresh, Logout and ChangePassword, plus LogoutAll and read-only
// introspection.
//
// Access tokens are short-lived JWTs that are never stored. Refresh tokens
// are JWTs whose jti is registered in a per-user sorted set in Redis; at most
// Config.Session.MaxSessionsPerUser of them are live per account, the oldest
// being evicted first. A refresh token is single-use: Refresh consumes it and
// returns a new pair.
//
// Every error returned by an Engine operation is an [*Error] whose Kind says
// what went wrong; [KindOf] extracts it.
package goSession
