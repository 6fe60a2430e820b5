package order

// Patch is a partial update of an order. Nil fields are left unchanged.
// A patch always appends exactly one delivery action and is only valid
// against the version it was computed from.
type Patch struct {
	Status          *Status
	Accepted        *bool
	Stored          *bool
	AddParticipants []string
	Action          *DeliveryAction
	ExpectedVersion int64
}
