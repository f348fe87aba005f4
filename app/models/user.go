package models

// User roles
const (
	RoleAdmin   = "admin"
	RoleCashier = "kasir"
)

// User is an admin panel account
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"size:16;default:admin" json:"role"`
}

// TableName keeps the remote table name stable
func (User) TableName() string {
	return "users"
}
