package models

// User mirrors the account record owned by the external identity service.
// Orders keep a weak reference to it for display; credentials and sessions
// never pass through this service.
type User struct {
	BaseModel
	Name  string `json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Role  string `json:"role"`

	Orders []Order `json:"orders,omitempty"`
}
