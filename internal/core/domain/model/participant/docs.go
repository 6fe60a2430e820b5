// Package participant models the people acting on an order: the client who
// owns it, the carrier (entregador) who picks it up and delivers it, and the
// community storage host (armazenador) who keeps it between drop-off and
// delivery.
//
// A Session binds a participant identifier to the role read from the
// identity store at session start. Role-gated operations never take a Role
// value: they take a Carrier or a Host, which can only be obtained from
// Session.Carrier and Session.Host. That keeps the role check in one place.
package participant
