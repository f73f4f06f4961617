package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"gorm.io/gorm/logger"
)

func TestMigrateAndSeed(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, MigrateDB(db))
	require.NoError(t, SeedDB(db))

	var skills int64
	db.Model(&Skill{}).Count(&skills)
	total := 0
	for _, names := range DefaultSkills {
		total += len(names)
	}
	assert.EqualValues(t, total, skills)

	var prompts []PromptTemplate
	db.Where("is_system = ?", true).Find(&prompts)
	assert.Len(t, prompts, 3)

	var fee SystemConfig
	require.NoError(t, db.Where(&SystemConfig{Key: "platform_fee_percent"}).First(&fee).Error)
	assert.Equal(t, "10", fee.Value)

	// seeding is idempotent
	require.NoError(t, SeedDB(db))
	var again int64
	db.Model(&Skill{}).Count(&again)
	assert.Equal(t, skills, again)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, logger.Silent)
	assert.Error(t, err)
}

func TestModelHelpers(t *testing.T) {
	freelancer := uint(9)
	p := Project{ClientID: 1, SelectedFreelancerID: &freelancer}
	assert.True(t, p.IsParty(1))
	assert.True(t, p.IsParty(9))
	assert.False(t, p.IsParty(2))

	assert.True(t, (&Payment{Status: PaymentStatusReleaseFailed}).InEscrow())
	assert.False(t, (&Payment{Status: PaymentStatusReleased}).InEscrow())
	assert.False(t, (&Payment{Status: PaymentStatusFailed}).IsLive())
	assert.True(t, (&Payment{Status: PaymentStatusCreated}).IsLive())

	assert.True(t, (&Milestone{Status: MilestoneStatusApproved}).IsActive())
	assert.False(t, (&Milestone{Status: MilestoneStatusPending}).IsActive())
}
