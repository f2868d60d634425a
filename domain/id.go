package domain

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewID generates a new record identifier. ObjectIDs are used everywhere,
// even by non-Mongo stores, because their leading four bytes carry the
// creation instant that login-code age checks rely on.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IDTimestamp extracts the creation instant embedded in an ObjectID hex
// string.
func IDTimestamp(id string) (time.Time, error) {
	if len(id) != 24 {
		return time.Time{}, fmt.Errorf("invalid record id %q", id)
	}
	secs, err := strconv.ParseInt(id[:8], 16, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	return time.Unix(secs, 0), nil
}
