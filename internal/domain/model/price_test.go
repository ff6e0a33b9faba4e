package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	d := decimal.NewFromInt(999)
	p := Product{Price: decimal.NewFromInt(1299), DiscountPrice: &d}
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(999)))

	//割引が定価以上なら無視
	higher := decimal.NewFromInt(1500)
	p.DiscountPrice = &higher
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(1299)))

	p.DiscountPrice = nil
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(1299)))
}

func TestOfferIsAvailable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, Offer{IsActive: false}.IsAvailable(now))
	assert.True(t, Offer{IsActive: true}.IsAvailable(now))
	assert.True(t, Offer{IsActive: true, EndsAt: &future}.IsAvailable(now))
	assert.False(t, Offer{IsActive: true, EndsAt: &past}.IsAvailable(now))
}
