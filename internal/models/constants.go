package models

// Snapshot keys. Each collection is stored as one blob rewritten in full.
const (
	KeyEquipment = "tms_equipment"
	KeyPeople    = "tms_people"
	KeyOrders    = "tms_orders"
	KeyUser      = "tms_user"
)

const (
	// DefaultConditionOut is recorded for every item at checkout
	DefaultConditionOut = "سليم"

	// ReturnNotesTag prefixes notes added when an order is completed
	ReturnNotesTag = "إرجاع: "

	// ReturnNotesSeparator joins return notes onto existing order notes
	ReturnNotesSeparator = " | "

	// FirstOrderNumber is used when the ledger has no orders yet
	FirstOrderNumber = 1001

	// UnknownPersonName is shown for orders whose person was deleted
	UnknownPersonName = "Unknown"

	// WorkerQueueSize is the sheets sync queue capacity
	WorkerQueueSize = 100
)

// ID prefixes for generated identifiers.
const (
	PrefixEquipment = "eq-"
	PrefixPerson    = "p-"
	PrefixOrder     = "ord-"
)

// LedgerStats is the dashboard summary.
type LedgerStats struct {
	TotalEquipment  int `json:"total_equipment"`
	CheckedOut      int `json:"checked_out"`
	InMaintenance   int `json:"in_maintenance"`
	ActiveOrders    int `json:"active_orders"`
	TotalPeople     int `json:"total_people"`
	CompletedOrders int `json:"completed_orders"`
}
