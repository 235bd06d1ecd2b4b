// Package httpapi serves the session engine over HTTP with echo.
//
// Routes live under /auth. The refresh token travels only in an HttpOnly
// cookie scoped to /auth; the access token is returned in the JSON body and
// sent back as a bearer header. Errors use the body
//
//	{"detail":[{"msg":"...","type":"...","loc":["..."]}]}
package httpapi
