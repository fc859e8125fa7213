package profiles

import "context"

// Repository persiste perfiles. Insert devuelve el ID generado por el store.
type Repository interface {
	Insert(ctx context.Context, p Profile) (string, error)
}
