package domain

// Session pairs one access token and one refresh token with one user.
// It is created at login, mutated only by access-token rotation, and
// deleted on revocation. The refresh string is the stable lookup key;
// the access string is replaced on every rotation.
type Session struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	Access  string `bson:"access" json:"access"`
	Refresh string `bson:"refresh" json:"refresh"`
	UserID  string `bson:"user_id" json:"user_id"`
	// Version is a monotonic rotation counter. Rotation is conditional on
	// the version the caller read, so two concurrent refreshes cannot both
	// win; the loser observes ErrConflict.
	Version int64 `bson:"version" json:"version"`
}
