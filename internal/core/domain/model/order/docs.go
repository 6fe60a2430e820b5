// Package order provides the Order aggregate of the last-mile delivery
// domain: one package's delivery record, shared by its owner, the carrier
// that claims it and the storage host that keeps it.
//
// The package includes:
//   - Order: the aggregate root (identity, participants, lifecycle flags,
//     proof codes, descriptive attributes and audit log)
//   - Status: the externally visible delivery phase
//   - DeliveryActions: the append-only audit log
//   - Patch: a partial update, the only way an Order changes after creation
//
// Key business rules enforced here:
//   - received and canceled are terminal
//   - accepted and stored never go back to false
//   - client_id membership and delivery_actions only grow
//   - every patch appends exactly one delivery action and bumps the version
//
// Which patch is legal for which participant is decided by the lifecycle
// engine in the services package.
package order
