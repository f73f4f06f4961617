package models

import (
	"fmt"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects without touching the package-level DB; tests and the CLI use it directly.
func Open(cfg *config.DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return db, nil
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Skill{},
		&FreelancerProfile{},
		&ClientProfile{},
		&Project{},
		&Proposal{},
		&ProjectInvitation{},
		&Milestone{},
		&Payment{},
		&Review{},
		&Team{},
		&TeamMember{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&Upload{},
		&Notification{},
		&LLMConfig{},
		&PromptTemplate{},
		&AIUsageLog{},
		&SystemConfig{},
		&IMBot{},
		&SystemLog{},
		&SchedulerLock{},
		&DailyReport{},
	}
}

func AutoMigrate() error {
	return MigrateDB(DB)
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	return SeedDB(DB)
}

func SeedDB(db *gorm.DB) error {
	if err := seedPrompts(db); err != nil {
		return err
	}
	if err := seedSkills(db); err != nil {
		return err
	}

	defaultConfigs := []SystemConfig{
		{Key: "ldap_enabled", Value: "false", Type: "bool", Group: "ldap", Label: "Enable LDAP Staff Login"},
		{Key: "ldap_host", Value: "", Type: "string", Group: "ldap", Label: "LDAP Server Host"},
		{Key: "ldap_port", Value: "389", Type: "int", Group: "ldap", Label: "LDAP Server Port"},
		{Key: "ldap_base_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Base DN"},
		{Key: "ldap_bind_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind DN"},
		{Key: "ldap_bind_password", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind Password"},
		{Key: "ldap_user_filter", Value: "(uid=%s)", Type: "string", Group: "ldap", Label: "LDAP User Filter"},
		{Key: "ldap_use_ssl", Value: "false", Type: "bool", Group: "ldap", Label: "Use SSL/TLS"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
		{Key: "escrow_release_delay_days", Value: "3", Type: "int", Group: "escrow", Label: "Business Days Before Automatic Release"},
		{Key: "escrow_holiday_country", Value: "NONE", Type: "string", Group: "escrow", Label: "Holiday Calendar (US, GB, DE, FR, CN, NONE)"},
		{Key: "platform_fee_percent", Value: "10", Type: "float", Group: "payment", Label: "Platform Fee Percent"},
		{Key: "auth_access_token_expire_hours", Value: "24", Type: "int", Group: "auth", Label: "Access Token Lifetime (hours)"},
		{Key: "auth_refresh_token_expire_hours", Value: "720", Type: "int", Group: "auth", Label: "Refresh Token Lifetime (hours)"},
		{Key: "daily_report_enabled", Value: "false", Type: "bool", Group: "report", Label: "Enable Daily Digest"},
		{Key: "daily_report_time", Value: "09:00", Type: "string", Group: "report", Label: "Daily Digest Time (HH:MM)"},
		{Key: "daily_report_ai_enabled", Value: "false", Type: "bool", Group: "report", Label: "Add LLM Commentary To Digest"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where(&SystemConfig{Key: cfg.Key}).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SystemPrompts are the built-in templates, one default per purpose
var SystemPrompts = []PromptTemplate{
	{
		Name:        "Proposal Draft",
		Description: "Drafts a cover letter from the project brief and the freelancer profile",
		Purpose:     "proposal_draft",
		Content: `You are helping a freelancer write a proposal for a project on a freelance marketplace.
Write a concise, specific cover letter (150-250 words). Reference the client's requirements,
map them to the freelancer's skills and experience, propose a short delivery plan, and end
with one clarifying question. Do not invent experience the profile does not mention.

## Project
{{project}}

## Freelancer profile
{{profile}}

## Extra notes from the freelancer
{{notes}}`,
		Variables: `["project", "profile", "notes"]`,
		IsDefault: true,
		IsSystem:  true,
	},
	{
		Name:        "Project Description",
		Description: "Turns a client's rough notes into a structured project brief",
		Purpose:     "project_description",
		Content: `You are helping a client post a project on a freelance marketplace.
Rewrite the notes below into a clear project description with these Markdown sections:
Overview, Scope of work, Deliverables, Required skills, Acceptance criteria.
Keep it under 350 words and do not add requirements that are not implied by the notes.

## Draft project
{{project}}

## Client notes
{{notes}}`,
		Variables: `["project", "notes"]`,
		IsDefault: true,
		IsSystem:  true,
	},
	{
		Name:        "Daily Digest Commentary",
		Description: "Short commentary on the marketplace daily digest",
		Purpose:     "daily_report",
		Content: `You are an operations analyst for a freelance marketplace. Given yesterday's
numbers, write 3 short bullet points: what changed, anything that looks risky
(failed escrow releases, refunds), and one suggestion. Plain text, no preamble.

{{stats}}`,
		Variables: `["stats"]`,
		IsDefault: true,
		IsSystem:  true,
	},
}

func seedPrompts(db *gorm.DB) error {
	for _, p := range SystemPrompts {
		var count int64
		if err := db.Model(&PromptTemplate{}).Where("purpose = ? AND is_system = ?", p.Purpose, true).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		tmpl := p
		if err := db.Create(&tmpl).Error; err != nil {
			return err
		}
	}
	return nil
}

// DefaultSkills is the seed catalogue, keyed by category.
var DefaultSkills = map[string][]string{
	"Web Development":    {"Go", "JavaScript", "TypeScript", "React", "Node.js", "PHP", "Python", "Django"},
	"Mobile Development": {"Flutter", "React Native", "Swift", "Kotlin"},
	"Design":             {"UI/UX Design", "Figma", "Graphic Design", "Illustration"},
	"Data":               {"SQL", "Data Analysis", "Machine Learning", "PostgreSQL"},
	"DevOps":             {"Docker", "Kubernetes", "AWS", "CI/CD"},
	"Writing":            {"Copywriting", "Technical Writing", "SEO"},
	"Marketing":          {"Social Media Marketing", "Email Marketing"},
}

func seedSkills(db *gorm.DB) error {
	var count int64
	db.Model(&Skill{}).Count(&count)
	if count > 0 {
		return nil
	}

	for category, names := range DefaultSkills {
		for _, name := range names {
			skill := Skill{Name: name, Slug: utils.Slugify(name), Category: category}
			if err := db.Create(&skill).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
