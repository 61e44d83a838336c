package nfc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var (
	ErrReaderUnavailable = errors.New("nfc reader unavailable")
	ErrTagRead           = errors.New("nfc tag read failed")
)

// Driver talks to the NFC hardware (directly or through a bridge).
type Driver interface {
	Start(ctx context.Context) error
	Claim(ctx context.Context) (Handle, error)
}

// Handle is an exclusive claim on the hardware.
type Handle interface {
	Read(ctx context.Context) (Tag, error)
	Release(ctx context.Context) error
}

// Reader serialises hardware claims and guarantees every claim is released
// before ReadTag returns.
type Reader struct {
	drv   Driver
	log   *slog.Logger
	slot  chan struct{}
	ready atomic.Bool
}

func NewReader(drv Driver, log *slog.Logger) *Reader {
	return &Reader{drv: drv, log: log, slot: make(chan struct{}, 1)}
}

// Start brings the reader to a ready state.
func (r *Reader) Start(ctx context.Context) error {
	if r.drv == nil {
		return ErrReaderUnavailable
	}
	if err := r.drv.Start(ctx); err != nil {
		r.ready.Store(false)
		return fmt.Errorf("%w: %v", ErrReaderUnavailable, err)
	}
	r.ready.Store(true)
	return nil
}

func (r *Reader) Ready() bool { return r.ready.Load() }

// ReadTag blocks until a tag is read, ctx is cancelled or the hardware fails.
// There is no internal timeout.
func (r *Reader) ReadTag(ctx context.Context) (Tag, error) {
	if !r.Ready() {
		return Tag{}, ErrReaderUnavailable
	}

	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return Tag{}, ctx.Err()
	}
	defer func() { <-r.slot }()

	h, err := r.drv.Claim(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Tag{}, ctx.Err()
		}
		return Tag{}, fmt.Errorf("%w: claim: %v", ErrTagRead, err)
	}
	defer func() {
		// release even when the caller already gave up
		if err := h.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("nfc release failed", "error", err)
		}
	}()

	tag, err := h.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Tag{}, ctx.Err()
		}
		return Tag{}, fmt.Errorf("%w: %v", ErrTagRead, err)
	}
	return tag, nil
}
