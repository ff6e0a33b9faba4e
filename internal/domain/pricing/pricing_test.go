package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/shipping"
)

func TestCalculate_AlgiersHome(t *testing.T) {
	fee := shipping.Resolve("الجزائر", shipping.ModeHome)
	b, err := Calculate(decimal.NewFromInt(1299), 1, fee)
	require.NoError(t, err)

	assert.Equal(t, "500", b.ShippingCost.String())
	assert.Equal(t, "1299", b.Subtotal.String())
	assert.Equal(t, "1799", b.TotalAmount.String())
}

func TestCalculate_AlgiersStopDesk(t *testing.T) {
	fee := shipping.Resolve("الجزائر", shipping.ModeStopDesk)
	b, err := Calculate(decimal.NewFromInt(1299), 1, fee)
	require.NoError(t, err)

	assert.Equal(t, "300", b.ShippingCost.String())
	assert.Equal(t, "1599", b.TotalAmount.String())
}

func TestCalculate_UnknownWilayaUsesFallback(t *testing.T) {
	fee := shipping.Resolve("99", shipping.ModeHome)
	b, err := Calculate(decimal.NewFromInt(1299), 1, fee)
	require.NoError(t, err)

	assert.Equal(t, "800", b.ShippingCost.String())
	assert.Equal(t, "2099", b.TotalAmount.String())
}

func TestCalculate_Rounding(t *testing.T) {
	b, err := Calculate(decimal.RequireFromString("10.005"), 3, decimal.RequireFromString("0.125"))
	require.NoError(t, err)

	//単価を先に丸めてから掛ける
	assert.Equal(t, "10.01", b.UnitPrice.StringFixed(2))
	assert.Equal(t, "30.03", b.Subtotal.StringFixed(2))
	assert.Equal(t, "0.13", b.ShippingCost.StringFixed(2))
	assert.Equal(t, "30.16", b.TotalAmount.StringFixed(2))
}

func TestCalculate_Invalid(t *testing.T) {
	_, err := Calculate(decimal.NewFromInt(100), 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Calculate(decimal.NewFromInt(-1), 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = Calculate(decimal.NewFromInt(1), 1, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrNegativeShipping)
}

// total == unit × qty + shipping が常に成り立つ
func TestCalculate_TotalInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	wilayas := shipping.List()

	for i := 0; i < 2000; i++ {
		unit := decimal.New(r.Int63n(5_000_000), -2)
		qty := 1 + r.Intn(20)
		wl := wilayas[r.Intn(len(wilayas))]
		mode := shipping.ModeHome
		if r.Intn(2) == 0 {
			mode = shipping.ModeStopDesk
		}
		fee := shipping.Resolve(wl.Name, mode)

		b, err := Calculate(unit, qty, fee)
		require.NoError(t, err)

		want := unit.Mul(decimal.NewFromInt(int64(qty))).Add(fee)
		assert.True(t, b.TotalAmount.Equal(want), "unit=%s qty=%d fee=%s", unit, qty, fee)
		assert.True(t, b.TotalAmount.Equal(b.Subtotal.Add(b.ShippingCost)))
	}
}
