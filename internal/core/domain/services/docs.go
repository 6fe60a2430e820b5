// Package services provides domain services of the delivery lifecycle that
// do not belong to a single aggregate method.
//
// The package includes:
//   - LifecycleEngine: the role-gated order transition table, pure and without I/O
//   - Classifier: partitions a participant's orders into the Pendentes,
//     Em andamento and Finalizados tabs and applies the name filter
//
// Both services only read their inputs. The engine returns the next order
// state together with the patch that persists it; the caller decides when
// to write.
package services
