package mongodb

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.jumpsca.re/runestone/domain"
)

// SessionRepository implements domain.SessionRepository over the tokens
// collection.
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository creates the repository and ensures its indexes.
// Both token strings are unique lookup keys; user_id supports revocation.
func NewSessionRepository(ctx context.Context, db *mongo.Database) (domain.SessionRepository, error) {
	repo := &SessionRepository{coll: db.Collection(TokensCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "access", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refresh", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for tokens collection (might already exist)")
	}
	return repo, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = domain.NewID()
	}
	if session.Version == 0 {
		session.Version = 1
	}
	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Str("userID", session.UserID).Msg("Error storing session")
		return err
	}
	return nil
}

func (r *SessionRepository) FindByRefresh(ctx context.Context, refresh string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"refresh": refresh})
}

func (r *SessionRepository) FindByAccess(ctx context.Context, access string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"access": access})
}

func (r *SessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Session, error) {
	var session domain.Session
	err := r.coll.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error loading session")
		return nil, err
	}
	return &session, nil
}

// RotateAccess replaces the access string, conditional on the version the
// caller read. A concurrent rotation or revocation makes the filter match
// nothing; the caller then distinguishes conflict from deletion by
// re-reading.
func (r *SessionRepository) RotateAccess(ctx context.Context, session *domain.Session, newAccess string) error {
	filter := bson.M{"_id": session.ID, "version": session.Version}
	update := bson.M{
		"$set": bson.M{"access": newAccess},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Error rotating session access token")
		return err
	}
	if result.MatchedCount == 0 {
		var current domain.Session
		err := r.coll.FindOne(ctx, bson.M{"_id": session.ID}).Decode(&current)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return domain.ErrNotFound
			}
			log.Error().Err(err).Str("sessionID", session.ID).Msg("Error re-reading session after failed rotation")
			return err
		}
		return domain.ErrConflict
	}
	session.Access = newAccess
	session.Version++
	return nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string, exceptAccess ...string) (int64, error) {
	filter := bson.M{"user_id": userID}
	if len(exceptAccess) > 0 {
		filter["access"] = bson.M{"$nin": exceptAccess}
	}
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error deleting sessions by user")
		return 0, err
	}
	return result.DeletedCount, nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
