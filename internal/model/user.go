package model

type UserRole string

const (
	Student UserRole = "student"
	Creator UserRole = "creator"
	Admin   UserRole = "admin"
)

type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
