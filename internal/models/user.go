package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// User represents a marketplace account
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Email      string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password   string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	FirstName  string         `gorm:"size:100" json:"first_name"`
	LastName   string         `gorm:"size:100" json:"last_name"`
	Avatar     string         `gorm:"size:500" json:"avatar"`
	Country    string         `gorm:"size:2" json:"country"`                  // ISO-2
	Role       string         `gorm:"size:20;index;not null" json:"role"`     // client, freelancer, admin
	AuthType   string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	IsVerified bool           `gorm:"default:false" json:"is_verified"`
	LastLogin  *time.Time     `json:"last_login"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

const (
	AvailabilityAvailable   = "available"
	AvailabilityBusy        = "busy"
	AvailabilityUnavailable = "unavailable"
)

// FreelancerProfile holds the public selling profile of a freelancer
type FreelancerProfile struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User              *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title             string    `gorm:"size:200" json:"title"`
	Bio               string    `gorm:"type:text" json:"bio"`
	HourlyRate        float64   `gorm:"default:0" json:"hourly_rate"`
	ExperienceYears   int       `gorm:"default:0" json:"experience_years"`
	Availability      string    `gorm:"size:20;default:available" json:"availability"`
	Languages         string    `gorm:"size:255" json:"languages"` // comma separated
	PortfolioURL      string    `gorm:"size:500" json:"portfolio_url"`
	PayoutAccountID   string    `gorm:"size:100" json:"-"` // gateway linked account
	Rating            float64   `gorm:"default:0" json:"rating"`
	ReviewCount       int       `gorm:"default:0" json:"review_count"`
	CompletedProjects int       `gorm:"default:0" json:"completed_projects"`
	TotalEarnings     float64   `gorm:"default:0" json:"total_earnings"`
	Skills            []Skill   `gorm:"many2many:freelancer_skills" json:"skills"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (FreelancerProfile) TableName() string { return "freelancer_profiles" }

// HasPayoutAccount reports whether escrow releases can be transferred.
func (p *FreelancerProfile) HasPayoutAccount() bool {
	return p.PayoutAccountID != ""
}

// ClientProfile holds the buying side profile of a client
type ClientProfile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CompanyName     string    `gorm:"size:200" json:"company_name"`
	Industry        string    `gorm:"size:100" json:"industry"`
	Website         string    `gorm:"size:500" json:"website"`
	Description     string    `gorm:"type:text" json:"description"`
	TotalSpent      float64   `gorm:"default:0" json:"total_spent"`
	ProjectsPosted  int       `gorm:"default:0" json:"projects_posted"`
	Rating          float64   `gorm:"default:0" json:"rating"`
	ReviewCount     int       `gorm:"default:0" json:"review_count"`
	PaymentVerified bool      `gorm:"default:false" json:"payment_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ClientProfile) TableName() string { return "client_profiles" }
