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

// CouponRepository implements domain.CouponRepository.
type CouponRepository struct {
	coll *mongo.Collection
}

// NewCouponRepository creates the repository and ensures the unique code
// index.
func NewCouponRepository(ctx context.Context, db *mongo.Database) (domain.CouponRepository, error) {
	repo := &CouponRepository{coll: db.Collection(CouponsCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for coupons collection (might already exist)")
	}
	return repo, nil
}

func (r *CouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = domain.NewID()
	}
	_, err := r.coll.InsertOne(ctx, coupon)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Str("code", coupon.Code).Msg("Error creating coupon")
		return err
	}
	return nil
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error loading coupon")
		return nil, err
	}
	return &coupon, nil
}

func (r *CouponRepository) DeleteByCode(ctx context.Context, code string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting coupon")
		return err
	}
	return nil
}

var _ domain.CouponRepository = (*CouponRepository)(nil)
