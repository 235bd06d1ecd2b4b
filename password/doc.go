// Package password hashes and verifies account passwords with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful sign-in.
//
// The package never stores passwords and never logs plaintext. Length and
// character policy belong to the request layer; the only bound enforced here
// is MaxPasswordBytes, which keeps Argon2 input finite.
package password
