package domain

type Role string

const (
	RoleDispatcher Role = "DISPATCHER"
	RoleTechnician Role = "TECHNICIAN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleCustomer   Role = "CUSTOMER"
)

// User is owned by the identity subsystem. The dispatch core only reads it.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// Technician is the lightweight projection returned to dispatchers when they
// pick an assignee.
type Technician struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Available bool   `json:"available"`
}

func (u *User) ToTechnician() Technician {
	return Technician{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Available: u.Active,
	}
}
