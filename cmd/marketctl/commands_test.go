package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/whomimohshukla/freelancehub/internal/config"
)

func TestMaskedConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Payment.KeySecret = "rzp_secret"
	c.Payment.WebhookSecret = "whsec"
	c.OpenAI.APIKey = "sk-test"

	m := maskedConfig(c)

	assert.Equal(t, secretMask, m.JWT.Secret)
	assert.Equal(t, secretMask, m.Payment.KeySecret)
	assert.Equal(t, secretMask, m.Payment.WebhookSecret)
	assert.Equal(t, secretMask, m.OpenAI.APIKey)
	assert.Empty(t, m.SMTP.Password)
	assert.Equal(t, "freelancehub.db", m.Database.DSN)

	// the source config is untouched
	assert.Equal(t, "rzp_secret", c.Payment.KeySecret)
}

func TestMaskedConfig_NetworkDSN(t *testing.T) {
	c := config.DefaultConfig()
	c.Database.Driver = "postgres"
	c.Database.DSN = "host=db user=app password=secret dbname=market"

	assert.Equal(t, secretMask, maskedConfig(c).Database.DSN)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "escrow", "users", "config"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sweep, _, err := rootCmd.Find([]string{"escrow", "sweep"})
	assert.NoError(t, err)
	assert.Equal(t, "sweep", sweep.Name())

	assert.Error(t, usersPromoteCmd.Args(usersPromoteCmd, nil))
}
