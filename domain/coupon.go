package domain

// Coupon is a single-use account-creation code. It is deleted immediately
// upon redemption, so its existence is its validity.
type Coupon struct {
	ID   string `bson:"_id,omitempty" json:"id"`
	Code string `bson:"code" json:"code"`
}
