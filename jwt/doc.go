// Package jwt mints and verifies the access and refresh tokens handed to clients.
// A Manager signs with one key and one algorithm; Decode distinguishes an
// expired token from every other kind of invalid token.
package jwt
