package domain

import (
	"time"

	"github.com/folioserve/folio-live/pkg/database"
)

// Project is one portfolio project entry.
type Project struct {
	ID           string               `gorm:"primaryKey" json:"id"`
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Technologies database.StringArray `json:"technologies"`
	ImageURL     string               `json:"imageUrl"`
	RepoURL      string               `json:"repoUrl"`
	LiveURL      string               `json:"liveUrl"`
	Featured     bool                 `json:"featured"`
	SortOrder    int                  `json:"sortOrder"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Skill is one skill entry with a 0-100 proficiency level.
type Skill struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name" binding:"required"`
	Category  string    `json:"category"`
	Level     int       `json:"level"`
	Icon      string    `json:"icon"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Certificate is one certification or award entry.
type Certificate struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Title         string    `json:"title" binding:"required"`
	Issuer        string    `json:"issuer"`
	IssuedAt      string    `json:"issuedAt"`
	CredentialURL string    `json:"credentialUrl"`
	ImageURL      string    `json:"imageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body" binding:"required"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notification is a persisted operator notification shown in the
// admin dashboard.
type Notification struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AboutID is the fixed primary key of the single about document.
const AboutID = "about"

// About is the singleton about-page document.
type About struct {
	ID        string               `gorm:"primaryKey" json:"id"`
	Headline  string               `json:"headline"`
	Bio       string               `json:"bio"`
	Location  string               `json:"location"`
	AvatarURL string               `json:"avatarUrl"`
	ResumeURL string               `json:"resumeUrl"`
	Socials   database.StringArray `json:"socials"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// User is an admin dashboard account.
type User struct {
	ID           string               `gorm:"primaryKey" json:"id"`
	Email        string               `gorm:"uniqueIndex" json:"email"`
	Username     string               `json:"username"`
	PasswordHash string               `json:"-"`
	Roles        database.StringArray `json:"roles"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// ToResponse strips sensitive fields for API output.
func (u *User) ToResponse() map[string]interface{} {
	return map[string]interface{}{
		"id":       u.ID,
		"email":    u.Email,
		"username": u.Username,
		"roles":    []string(u.Roles),
	}
}
