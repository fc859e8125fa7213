package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"mamacare-api/internal/platform/lazy"
)

const DefaultCollection = "pregnancy_profiles"

var ErrNotConnected = errors.New("mongodb: not connected")

type Config struct {
	URI        string
	Database   string
	Collection string

	// ConnectTimeout acota connect+ping del intento compartido.
	ConnectTimeout time.Duration

	// StickyErrors: si el primer intento falla, no se reintenta nunca
	// (todos los requests siguientes reciben el mismo error).
	StickyErrors bool
}

// Dialer abre y verifica un *mongo.Client. Reemplazable en tests.
type Dialer func(ctx context.Context, cfg Config) (*mongo.Client, error)

type handle struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Accessor es dueño exclusivo de la conexión. La establece en el primer uso
// y la reutiliza después; requests concurrentes comparten el mismo intento.
type Accessor struct {
	cfg    Config
	handle *lazy.Value[handle]
}

func NewAccessor(cfg Config) *Accessor {
	return NewAccessorWithDialer(cfg, Dial)
}

func NewAccessorWithDialer(cfg Config, dial Dialer) *Accessor {
	if strings.TrimSpace(cfg.Collection) == "" {
		cfg.Collection = DefaultCollection
	}
	a := &Accessor{cfg: cfg}
	a.handle = lazy.New(func(ctx context.Context) (handle, error) {
		client, err := dial(ctx, cfg)
		if err != nil {
			return handle{}, err
		}
		return handle{
			client: client,
			coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		}, nil
	}, lazy.Options{
		InitTimeout:  cfg.ConnectTimeout,
		StickyErrors: cfg.StickyErrors,
	})
	return a
}

// Collection devuelve el handle listo para usar, conectando si hace falta.
func (a *Accessor) Collection(ctx context.Context) (*mongo.Collection, error) {
	h, err := a.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return h.coll, nil
}

// Close desconecta solo si alguna vez se conectó.
func (a *Accessor) Close(ctx context.Context) error {
	h, ok := a.handle.Peek()
	if !ok {
		return nil
	}
	return h.client.Disconnect(ctx)
}

// Dial conecta con el driver oficial y hace ping al primario.
func Dial(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetAppName("mamacare-api")
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
