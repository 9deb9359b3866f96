package booking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MaxServicePoints caps the points earned by one service.
	MaxServicePoints int64 = 1000
	// MinRedeemPoints is the smallest non-zero redemption.
	MinRedeemPoints int64 = 100
)

var (
	earnRate      = decimal.NewFromFloat(0.5)
	redeemCapRate = decimal.NewFromFloat(0.5)
	// pointValue is the currency value of one point.
	pointValue = decimal.NewFromInt(1)
)

// CalculateServicePoints returns floor(amount × 0.5) capped at MaxServicePoints.
func CalculateServicePoints(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	points := amount.Mul(earnRate).Floor().IntPart()
	if points > MaxServicePoints {
		return MaxServicePoints
	}
	return points
}

// ComputeRedeemablePoints returns how many points may be applied to an invoice of
// total: the lesser of balance and half the total, or zero below MinRedeemPoints.
func ComputeRedeemablePoints(balance int64, total decimal.Decimal) int64 {
	if balance <= 0 || !total.IsPositive() {
		return 0
	}
	redeemable := min(balance, total.Mul(redeemCapRate).Floor().IntPart())
	if redeemable < MinRedeemPoints {
		return 0
	}
	return redeemable
}

// ValidateRedeemPoints checks a redemption request against balance and total.
// Zero points always pass.
func ValidateRedeemPoints(points int64, balance int64, total decimal.Decimal) error {
	if points < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRedeemPoints, points)
	}
	if points == 0 {
		return nil
	}
	if points < MinRedeemPoints {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinimumRedemption, points, MinRedeemPoints)
	}
	redeemable := ComputeRedeemablePoints(balance, total)
	if points > redeemable {
		return fmt.Errorf("%w: %d > %d", ErrAboveRedeemableCap, points, redeemable)
	}
	return nil
}

// PointsValue converts points to currency.
func PointsValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(pointValue)
}
