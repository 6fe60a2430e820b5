// Package guard provides ConstructorGuard, a marker embedded in value objects,
// aggregates, commands and queries to detect instances that bypassed their
// constructor and are therefore unvalidated zero values.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is given.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard is set only by NewConstructorGuard, so a zero value marks
// an object that was never constructed.
//
// Example:
//
//	var ErrCodeIsNotConstructed = errors.New("ProofCode must be created via NewProofCode")
//
//	type ProofCode struct {
//	    value string
//	    guard guard.ConstructorGuard
//	}
//
//	func (c ProofCode) Validate() error {
//	    return c.guard.Validate(ErrCodeIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard marking its owner as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is
// nil) if the owner was not built through its constructor.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
