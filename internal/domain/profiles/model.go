package profiles

import "time"

// Campos que asigna el sistema. Pisan cualquier valor que mande el cliente.
const (
	FieldID        = "id"
	FieldMongoID   = "_id"
	FieldEmail     = "email"
	FieldUserID    = "userId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Profile es un perfil de embarazo: un blob JSON arbitrario del cliente
// más dueño y timestamps.
type Profile struct {
	// ID lo asigna el store al insertar.
	ID string

	UserID string

	// Fields son los campos del cliente, ya sin los reservados.
	Fields map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document arma el documento a persistir: campos del cliente + los del sistema.
// No incluye el ID (lo genera el store).
func (p Profile) Document() map[string]any {
	doc := make(map[string]any, len(p.Fields)+3)
	for k, v := range p.Fields {
		doc[k] = v
	}
	doc[FieldUserID] = p.UserID
	doc[FieldCreatedAt] = p.CreatedAt
	doc[FieldUpdatedAt] = p.UpdatedAt
	return doc
}
