package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mamacare-api/internal/domain/profiles"
)

var (
	ErrNotFound = errors.New("not found")
)

// ProfileRepo guarda perfiles en memoria. Solo para dev y tests.
type ProfileRepo struct {
	mu   sync.RWMutex
	byID map[string]profiles.Profile
	ids  []string // orden de inserción
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{
		byID: make(map[string]profiles.Profile),
	}
}

func (r *ProfileRepo) Insert(ctx context.Context, p profiles.Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("profile user id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.NewString()
	p.Fields = copyFields(p.Fields)
	r.byID[p.ID] = p
	r.ids = append(r.ids, p.ID)
	return p.ID, nil
}

// GetByID y All no los expone la API; los usan los tests para inspeccionar lo guardado.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return profiles.Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *ProfileRepo) All() []profiles.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profiles.Profile, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *ProfileRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
