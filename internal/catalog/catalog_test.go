package catalog

import (
	"testing"
	"time"

	"github.com/set-night/boostly"
	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultCatalog(t *testing.T) {
	c, err := Load(boostly.DefaultCatalog, 2*time.Hour)
	require.NoError(t, err)

	likes, err := c.Lookup(domain.PlatformInstagram, "likes")
	require.NoError(t, err)
	assert.True(t, likes.BasePrice.Equal(decimal.RequireFromString("0.50")))
	assert.Equal(t, domain.TaskTypeLike, likes.TaskType)

	views, err := c.Lookup(domain.PlatformInstagram, "views")
	require.NoError(t, err)
	assert.True(t, views.BasePrice.Equal(decimal.RequireFromString("0.10")))

	_, err = c.Lookup(domain.PlatformYouTube, "subscribers")
	require.NoError(t, err)

	for _, s := range c.Services() {
		assert.True(t, s.Rate.LessThanOrEqual(s.BasePrice), s.Key().String())
	}
}

func TestLookupUnknownService(t *testing.T) {
	c, err := Load(boostly.DefaultCatalog, time.Hour)
	require.NoError(t, err)

	_, err = c.Lookup(domain.PlatformYouTube, "followers")
	assert.ErrorIs(t, err, domain.ErrUnknownService)

	_, err = c.Lookup("tiktok", "likes")
	assert.ErrorIs(t, err, domain.ErrUnknownService)
}

func TestCooldown(t *testing.T) {
	c, err := Load([]byte(`
taskTypes:
  - type: like
    cooldown: 30m
  - type: follow
    cooldown: 5h
services:
  - {platform: instagram, serviceId: likes, taskType: like, basePrice: "1", rate: "0.5", minQuantity: 1, maxQuantity: 10}
`), 3*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, c.Cooldown(domain.TaskTypeLike))
	assert.Equal(t, 3*time.Hour, c.Cooldown(domain.TaskTypeView))
	assert.Zero(t, c.Cooldown(domain.TaskTypeFollow))
	assert.Zero(t, c.Cooldown(domain.TaskTypeSubscribe))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `services: []`},
		{"bad platform", `services: [{platform: tiktok, serviceId: likes, taskType: like, basePrice: "1", rate: "0", minQuantity: 1, maxQuantity: 2}]`},
		{"bad task type", `services: [{platform: instagram, serviceId: likes, taskType: share, basePrice: "1", rate: "0", minQuantity: 1, maxQuantity: 2}]`},
		{"zero price", `services: [{platform: instagram, serviceId: likes, taskType: like, basePrice: "0", rate: "0", minQuantity: 1, maxQuantity: 2}]`},
		{"rate above price", `services: [{platform: instagram, serviceId: likes, taskType: like, basePrice: "1", rate: "2", minQuantity: 1, maxQuantity: 2}]`},
		{"inverted bounds", `services: [{platform: instagram, serviceId: likes, taskType: like, basePrice: "1", rate: "0", minQuantity: 5, maxQuantity: 2}]`},
		{"bad decimal", `services: [{platform: instagram, serviceId: likes, taskType: like, basePrice: "abc", rate: "0", minQuantity: 1, maxQuantity: 2}]`},
		{"bad cooldown", "taskTypes: [{type: like, cooldown: soon}]\nservices: [{platform: instagram, serviceId: likes, taskType: like, basePrice: \"1\", rate: \"0\", minQuantity: 1, maxQuantity: 2}]"},
		{"duplicate", `services: [{platform: instagram, serviceId: likes, taskType: like, basePrice: "1", rate: "0", minQuantity: 1, maxQuantity: 2}, {platform: instagram, serviceId: likes, taskType: like, basePrice: "1", rate: "0", minQuantity: 1, maxQuantity: 2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml), time.Hour)
			assert.Error(t, err)
		})
	}
}
