package models

import "time"

// User is the role-tagged projection of an identity that the messaging core
// needs: enough to authenticate a connection and address notifications.
// Credential issuance and profile data belong to the backend that owns the
// schema.
type User struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// CareRecipient is the settlement-relevant projection of a care recipient.
// IsSettled only ever transitions false to true through this service.
type CareRecipient struct {
	ID                     int64      `json:"id"`
	IsSettled              bool       `json:"isSettled"`
	SettledWithCaregiverID *int64     `json:"settledWithCaregiverId,omitempty"`
	SettledAt              *time.Time `json:"settledAt,omitempty"`
}
