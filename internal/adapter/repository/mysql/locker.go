package mysql

import (
	"context"
	"sync"
)

// Locker serializes engine operations. Unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// LocalLocker serializes within one process. Waiting for it honours ctx.
type LocalLocker struct {
	once sync.Once
	sem  chan struct{}
}

func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	l.once.Do(func() { l.sem = make(chan struct{}, 1) })
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
