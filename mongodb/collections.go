package mongodb

const (
	UsersCollection      = "users"       // Account records
	TokensCollection     = "tokens"      // Session records (access/refresh pairs)
	LoginCodesCollection = "login_codes" // One-time emailed login codes
	CouponsCollection    = "coupons"     // Single-use account-creation coupons
)
