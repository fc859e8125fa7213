package lazy

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultInitTimeout = 10 * time.Second

var ErrNilInit = errors.New("lazy: nil init func")

// InitFunc construye el valor. Recibe un contexto desacoplado de la cancelación
// del caller y acotado por InitTimeout.
type InitFunc[T any] func(ctx context.Context) (T, error)

type Options struct {
	// InitTimeout acota el intento compartido de inicialización.
	InitTimeout time.Duration

	// StickyErrors: si true, el primer error queda cacheado y se devuelve
	// a todos los callers siguientes (sin reintentar).
	StickyErrors bool
}

// Value es un valor inicializado una sola vez bajo demanda.
// Los callers concurrentes durante la inicialización esperan el mismo intento.
type Value[T any] struct {
	init InitFunc[T]
	opts Options

	group singleflight.Group

	mu    sync.RWMutex
	ready bool
	val   T
	err   error // solo con StickyErrors
}

func New[T any](init InitFunc[T], opts Options) *Value[T] {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	return &Value[T]{init: init, opts: opts}
}

// Get devuelve el valor, inicializándolo si hace falta.
// Si ctx se cancela mientras se espera, Get retorna ctx.Err() pero el intento
// compartido sigue corriendo para los demás callers.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if v == nil || v.init == nil {
		return zero, ErrNilInit
	}

	if val, ok, err := v.cached(); ok {
		return val, err
	}

	ch := v.group.DoChan("init", func() (any, error) {
		// Otro flight pudo terminar entre cached() y DoChan.
		if val, ok, err := v.cached(); ok {
			return val, err
		}

		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.opts.InitTimeout)
		defer cancel()

		val, err := v.init(initCtx)

		v.mu.Lock()
		defer v.mu.Unlock()
		if err != nil {
			if v.opts.StickyErrors {
				v.err = err
			}
			return zero, err
		}
		v.val = val
		v.ready = true
		return val, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek devuelve el valor solo si ya fue inicializado; nunca dispara init.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.ready
}

func (v *Value[T]) cached() (T, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.ready {
		return v.val, true, nil
	}
	var zero T
	if v.err != nil {
		return zero, true, v.err
	}
	return zero, false, nil
}
