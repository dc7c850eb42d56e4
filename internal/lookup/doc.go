// Package lookup resolves an operator-typed volume reference, a sender plus
// the trailing digits of the volume number, to the volumes it could mean.
//
// A match is never tie-broken: two candidates come back as an Ambiguous
// result and the caller asks the operator to pick one.
package lookup
