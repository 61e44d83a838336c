package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

var hundred = decimal.NewFromInt(100)

// BMI is weight(kg) / height(m)^2 rounded to two decimals. ok is false when
// either input is not positive.
func BMI(heightCM, weightKG decimal.Decimal) (bmi decimal.Decimal, ok bool) {
	if !heightCM.IsPositive() || !weightKG.IsPositive() {
		return decimal.Zero, false
	}
	m := heightCM.Div(hundred)
	return weightKG.Div(m.Mul(m)).Round(2), true
}

type BodyMetrics struct {
	Height decimal.Decimal  `json:"height"`
	Weight decimal.Decimal  `json:"weight"`
	BMI    *decimal.Decimal `json:"bmi,omitempty"`
}

type Profile struct {
	be ProfileBackend
}

func NewProfile(be ProfileBackend) *Profile { return &Profile{be: be} }

func (p *Profile) UpdateBody(ctx context.Context, sess session.Context, heightCM, weightKG decimal.Decimal) (BodyMetrics, error) {
	if heightCM.IsNegative() || weightKG.IsNegative() {
		return BodyMetrics{}, domain.ErrInvalidAmount
	}
	if err := p.be.UpdateBodyMetrics(ctx, sess, heightCM, weightKG); err != nil {
		return BodyMetrics{}, err
	}
	out := BodyMetrics{Height: heightCM, Weight: weightKG}
	if bmi, ok := BMI(heightCM, weightKG); ok {
		out.BMI = &bmi
	}
	return out, nil
}
