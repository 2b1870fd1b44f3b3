package models

import "time"

type RegisterEquipmentRequest struct {
	Name         string            `json:"name"`
	Category     EquipmentCategory `json:"category"`
	Model        string            `json:"model"`
	SerialNumber string            `json:"serial_number"`
	Ownership    Ownership         `json:"ownership"`
	OwnerName    string            `json:"owner_name,omitempty"`
	Location     string            `json:"location"`
	Notes        string            `json:"notes,omitempty"`
	Capacity     string            `json:"capacity,omitempty"`
	MediaType    MediaType         `json:"media_type,omitempty"`
}

// UpdateEquipmentRequest replaces the descriptive fields of an item.
// Status is changed through SetEquipmentStatus or the order lifecycle.
type UpdateEquipmentRequest = RegisterEquipmentRequest

type RegisterPersonRequest struct {
	FullName   string `json:"full_name"`
	JobTitle   string `json:"job_title"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	// IsActive defaults to true when omitted.
	IsActive *bool  `json:"is_active,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	PersonID     string    `json:"person_id"`
	Type         OrderType `json:"type"`
	EquipmentIDs []string  `json:"equipment_ids"`
	Notes        string    `json:"notes,omitempty"`
	CreatedBy    string    `json:"created_by"`
}

type CompleteOrderRequest struct {
	OrderID    string    `json:"order_id"`
	ReturnDate time.Time `json:"return_date"`
	Notes      string    `json:"notes,omitempty"`
	// ConditionsIn maps equipment id to the condition noted on return.
	ConditionsIn map[string]string `json:"conditions_in,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
