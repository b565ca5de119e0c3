package policy

import (
	"context"
	"time"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

// DBSubscriptionResolver reads subscription state from the users table.
// It implements entitlement.SubscriptionResolver. Period end and trial
// expiry are stored on the user row by the checkout webhook handling, which
// lives outside this core.
type DBSubscriptionResolver struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewDBSubscriptionResolver creates a database-backed subscription resolver.
func NewDBSubscriptionResolver(db *gorm.DB) *DBSubscriptionResolver {
	return &DBSubscriptionResolver{DB: db, Now: time.Now}
}

func (r *DBSubscriptionResolver) load(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).
		Select("id", "plan_id", "current_period_end", "cancel_at_period_end", "trial_ends_at").
		First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// PlanActive reports whether the user's paid plan period is still running.
func (r *DBSubscriptionResolver) PlanActive(ctx context.Context, userID uint) (bool, error) {
	user, err := r.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.SubscriptionActive(r.Now()), nil
}

// TrialActive reports whether the user's trial is still running.
func (r *DBSubscriptionResolver) TrialActive(ctx context.Context, userID uint) (bool, error) {
	user, err := r.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.TrialActive(r.Now()), nil
}
