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

// LoginCodeRepository implements domain.LoginCodeRepository.
type LoginCodeRepository struct {
	coll *mongo.Collection
}

// NewLoginCodeRepository creates the repository and ensures the unique
// code index. Expiry is enforced by the service from the record's
// creation instant, not by a TTL index: an expired-but-present code must
// fail the same way as a deleted one.
func NewLoginCodeRepository(ctx context.Context, db *mongo.Database) (domain.LoginCodeRepository, error) {
	repo := &LoginCodeRepository{coll: db.Collection(LoginCodesCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for login_codes collection (might already exist)")
	}
	return repo, nil
}

func (r *LoginCodeRepository) Create(ctx context.Context, code *domain.LoginCode) error {
	if code.ID == "" {
		code.ID = domain.NewID()
	}
	_, err := r.coll.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Str("userID", code.UserID).Msg("Error storing login code")
		return err
	}
	return nil
}

func (r *LoginCodeRepository) FindByCode(ctx context.Context, code string) (*domain.LoginCode, error) {
	var record domain.LoginCode
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error loading login code")
		return nil, err
	}
	return &record, nil
}

func (r *LoginCodeRepository) DeleteByCode(ctx context.Context, code string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting login code")
		return err
	}
	return nil
}

var _ domain.LoginCodeRepository = (*LoginCodeRepository)(nil)
