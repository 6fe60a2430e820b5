// Package kernel provides the shared value objects of the delivery domain:
//   - UUID: identifier of orders, assigned by the repository at creation
//   - Location: a validated latitude/longitude pair of a delivery address
//
// Both are immutable and can only be obtained from their constructors; the
// zero value fails Validate.
package kernel
