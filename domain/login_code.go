package domain

import "time"

// LoginCode is a one-time emailed login code. There is no expiry field:
// the code's age is derived from the creation instant embedded in its ID,
// and it is consumed (deleted) on first successful use.
type LoginCode struct {
	ID     string `bson:"_id,omitempty" json:"id"`
	Code   string `bson:"code" json:"code"`
	UserID string `bson:"user_id" json:"user_id"`
}

// CreatedAt returns the creation instant embedded in the record ID.
func (c *LoginCode) CreatedAt() (time.Time, error) {
	return IDTimestamp(c.ID)
}
