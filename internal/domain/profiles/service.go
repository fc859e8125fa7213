package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmailRequired = errors.New("email is required")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Create valida el payload, le pega dueño y timestamps e inserta.
// ownerUserID viene siempre de la sesión; cualquier "userId" del body se pisa.
func (s *Service) Create(ctx context.Context, ownerUserID string, payload map[string]any) (Profile, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Profile{}, ErrInvalidInput
	}
	if !Truthy(payload[FieldEmail]) {
		return Profile{}, ErrEmailRequired
	}

	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case FieldMongoID, FieldUserID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		fields[k] = normalize(v)
	}

	// Un solo instante para ambos timestamps. Truncado a ms: es la
	// precisión de BSON date, así lo guardado y lo devuelto coinciden.
	now := s.now().UTC().Truncate(time.Millisecond)
	p := Profile{
		UserID:    ownerUserID,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	p.ID = id
	return p, nil
}
