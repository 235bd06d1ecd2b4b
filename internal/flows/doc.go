// Package flows contains the use-case orchestrators behind every Engine operation.
//
// Each Run function accepts a typed dependency struct and reports its outcome
// as a Result carrying a FailureKind, which the root package maps onto its
// public error kinds. Flows hold no state between calls and perform no I/O
// except through their dependencies.
//
// This package must not import the root goSession package.
package flows
