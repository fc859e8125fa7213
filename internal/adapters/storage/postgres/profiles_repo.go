package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"mamacare-api/internal/domain/profiles"
)

// ProfilesRepo guarda los campos del cliente en una columna JSONB.
type ProfilesRepo struct {
	pool *LazyPool
}

func NewProfilesRepo(pool *LazyPool) *ProfilesRepo {
	return &ProfilesRepo{pool: pool}
}

func (r *ProfilesRepo) Insert(ctx context.Context, p profiles.Profile) (string, error) {
	pool, err := r.pool.Get(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(p.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal profile data: %w", err)
	}

	id := uuid.NewString()
	_, err = pool.Exec(ctx, `
		INSERT INTO pregnancy_profiles (
			id, user_id, data, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5)
	`,
		id,
		p.UserID,
		data,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("postgres insert: %w", err)
	}
	return id, nil
}
