package models

type Role string

const (
	RoleOwner   Role = "owner" // restaurant account created at registration
	RoleAdmin   Role = "admin"
	RoleKitchen Role = "kitchen"
	RoleWaiter  Role = "waiter"
	RoleCashier Role = "cashier"
)

// StaffRoles are the roles an admin can assign to a staff member.
var StaffRoles = []Role{RoleAdmin, RoleKitchen, RoleWaiter, RoleCashier}

func (r Role) IsStaffRole() bool {
	for _, s := range StaffRoles {
		if s == r {
			return true
		}
	}
	return false
}

// User is the owner account of a restaurant.
type User struct {
	Base
	RestaurantID string      `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Restaurant   *Restaurant `json:"-"`
	Name         string      `gorm:"size:100" json:"name"`
	Email        string      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"size:255;not null" json:"-"`
}
