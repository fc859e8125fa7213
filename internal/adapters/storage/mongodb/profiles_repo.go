package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"mamacare-api/internal/domain/profiles"
)

type ProfilesRepo struct {
	acc *Accessor
}

func NewProfilesRepo(acc *Accessor) *ProfilesRepo {
	return &ProfilesRepo{acc: acc}
}

func (r *ProfilesRepo) Insert(ctx context.Context, p profiles.Profile) (string, error) {
	coll, err := r.acc.Collection(ctx)
	if err != nil {
		return "", err
	}

	res, err := coll.InsertOne(ctx, bson.M(p.Document()))
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}

	switch id := res.InsertedID.(type) {
	case bson.ObjectID:
		return id.Hex(), nil
	default:
		return fmt.Sprint(id), nil
	}
}
