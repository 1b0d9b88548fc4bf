package model

import "time"

type MembershipType string

const (
	MembershipFree     MembershipType = "free"
	MembershipStandard MembershipType = "standard"
	MembershipPremium  MembershipType = "premium"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentClosed  PaymentStatus = "closed"
)

type User struct {
	ID             string         `gorm:"primaryKey;size:36;not null"`
	Phone          string         `gorm:"size:16;uniqueIndex;not null"`
	MembershipType MembershipType `gorm:"size:16;not null;default:free"`
	// nil for free users
	MembershipExpiry *time.Time

	DailyExportCount     int       `gorm:"not null;default:0"`
	DailyExportResetDate time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveTier resolves the tier gating search caps and export permission.
// A paid tier past its expiry counts as free.
func (u *User) EffectiveTier(now time.Time) MembershipType {
	if u.MembershipType == MembershipFree || u.MembershipType == "" {
		return MembershipFree
	}
	if u.MembershipExpiry != nil && u.MembershipExpiry.Before(now) {
		return MembershipFree
	}
	return u.MembershipType
}

// EffectiveExportCount zeroes the daily counter when the stored reset date
// belongs to an earlier calendar day.
func (u *User) EffectiveExportCount(now time.Time) int {
	if u.DailyExportResetDate.Before(StartOfDay(now)) {
		return 0
	}
	return u.DailyExportCount
}

// StartOfDay is the calendar-day boundary used by the export counter.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type PaymentIntent struct {
	// merchant order number, idempotency key towards the payment provider
	OutTradeNo     string         `gorm:"primaryKey;size:64;not null"`
	UserID         string         `gorm:"size:36;index;not null"`
	MembershipType MembershipType `gorm:"size:16;not null"`
	// amount in fen
	Amount int64         `gorm:"not null"`
	Status PaymentStatus `gorm:"size:16;index;not null;default:pending"`

	// set once the provider confirms payment
	TransactionID string `gorm:"size:64"`
	Error         string `gorm:"size:255"`
	PaidAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
