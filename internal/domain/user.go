package domain

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User a storefront account. Accounts are owned by the auth service;
// the role decides access to admin operations.
type User struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `json:"name" form:"name"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email" form:"email"`
	Role      string    `gorm:"size:16;default:'customer'" json:"role" form:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OprLog audit record of an admin catalog action
type OprLog struct {
	ID        int64     `json:"id,string"`
	OprID     int64     `gorm:"index" json:"opr_id,string"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (OprLog) TableName() string {
	return "opr_log"
}
