package models

import "time"

type OrderType string

const (
	OrderShooting         OrderType = "shooting"
	OrderLiveStream       OrderType = "live_stream"
	OrderEpisodeRecording OrderType = "episode_recording"
)

var orderTypeLabels = map[OrderType]string{
	OrderShooting:         "تصوير",
	OrderLiveStream:       "بث مباشر",
	OrderEpisodeRecording: "تسجيل حلقة",
}

func (t OrderType) Valid() bool {
	_, ok := orderTypeLabels[t]
	return ok
}

func (t OrderType) Label() string {
	if l, ok := orderTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderCompleted OrderStatus = "completed"
)

func (s OrderStatus) Label() string {
	switch s {
	case OrderActive:
		return "جاري"
	case OrderCompleted:
		return "مكتمل"
	}
	return string(s)
}

// OrderItem is one piece of equipment on an order. The name is a snapshot
// taken when the order was created.
type OrderItem struct {
	EquipmentID   string `json:"equipment_id" yaml:"equipment_id"`
	EquipmentName string `json:"equipment_name" yaml:"equipment_name"`
	ConditionOut  string `json:"condition_out" yaml:"condition_out"`
	ConditionIn   string `json:"condition_in,omitempty" yaml:"condition_in"`
}

// Order is a checkout transaction. It is created active and moves to
// completed exactly once.
type Order struct {
	ID          string      `json:"id" yaml:"id"`
	OrderNumber int         `json:"order_number" yaml:"order_number"`
	PersonID    string      `json:"person_id" yaml:"person_id"`
	PersonName  string      `json:"person_name" yaml:"person_name"`
	Type        OrderType   `json:"type" yaml:"type"`
	DateOut     time.Time   `json:"date_out" yaml:"date_out"`
	DateIn      *time.Time  `json:"date_in,omitempty" yaml:"date_in"`
	Items       []OrderItem `json:"items" yaml:"items"`
	Notes       string      `json:"notes,omitempty" yaml:"notes"`
	Status      OrderStatus `json:"status" yaml:"status"`
	CreatedBy   string      `json:"created_by" yaml:"created_by"`
}

func (o *Order) IsActive() bool {
	return o.Status == OrderActive
}

// References reports whether the order lists the given equipment.
func (o *Order) References(equipmentID string) bool {
	for _, it := range o.Items {
		if it.EquipmentID == equipmentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias ledger state.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.DateIn != nil {
		t := *o.DateIn
		c.DateIn = &t
	}
	return c
}
