// Package middleware adapts access-token verification to net/http.
//
// [RequireAccess] reads the Authorization bearer token, calls
// ValidateAccess on the engine and stores the result in the request
// context, where [AccessFromContext] retrieves it. Refresh tokens are
// never accepted as bearer credentials.
//
// The package does not parse tokens or touch the session store itself.
package middleware
