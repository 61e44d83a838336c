package nfc_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
)

type fakeDriver struct {
	startErr error
	claimErr error
	readFn   func(ctx context.Context) (nfc.Tag, error)

	claims   atomic.Int32
	releases atomic.Int32
}

func (d *fakeDriver) Start(context.Context) error { return d.startErr }

func (d *fakeDriver) Claim(context.Context) (nfc.Handle, error) {
	if d.claimErr != nil {
		return nil, d.claimErr
	}
	d.claims.Add(1)
	return &fakeHandle{d: d}, nil
}

type fakeHandle struct{ d *fakeDriver }

func (h *fakeHandle) Read(ctx context.Context) (nfc.Tag, error) { return h.d.readFn(ctx) }

func (h *fakeHandle) Release(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	h.d.releases.Add(1)
	return nil
}

func startedReader(t *testing.T, d *fakeDriver) *nfc.Reader {
	t.Helper()
	r := nfc.NewReader(d, logging.Discard())
	require.NoError(t, r.Start(context.Background()))
	return r
}

func TestReader_Start_Unavailable(t *testing.T) {
	r := nfc.NewReader(&fakeDriver{startErr: errors.New("no permission")}, logging.Discard())

	err := r.Start(context.Background())

	assert.ErrorIs(t, err, nfc.ErrReaderUnavailable)
	assert.False(t, r.Ready())

	_, err = r.ReadTag(context.Background())
	assert.ErrorIs(t, err, nfc.ErrReaderUnavailable)
}

func TestReader_ReadTag_ReleasesOnSuccess(t *testing.T) {
	d := &fakeDriver{readFn: func(context.Context) (nfc.Tag, error) {
		return nfc.Tag{Records: []nfc.Record{{Payload: nfc.TextPayload("a", "b", "c")}}}, nil
	}}
	r := startedReader(t, d)

	tag, err := r.ReadTag(context.Background())

	require.NoError(t, err)
	assert.Len(t, tag.Records, 1)
	assert.EqualValues(t, 1, d.claims.Load())
	assert.EqualValues(t, 1, d.releases.Load())
}

func TestReader_ReadTag_ReleasesOnHardwareError(t *testing.T) {
	d := &fakeDriver{readFn: func(context.Context) (nfc.Tag, error) {
		return nfc.Tag{}, errors.New("tag lost")
	}}
	r := startedReader(t, d)

	_, err := r.ReadTag(context.Background())

	assert.ErrorIs(t, err, nfc.ErrTagRead)
	assert.EqualValues(t, 1, d.releases.Load())
}

func TestReader_ReadTag_ReleasesOnCancel(t *testing.T) {
	d := &fakeDriver{readFn: func(ctx context.Context) (nfc.Tag, error) {
		<-ctx.Done()
		return nfc.Tag{}, ctx.Err()
	}}
	r := startedReader(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := r.ReadTag(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, d.releases.Load())
}

func TestReader_ReadTag_ClaimFailure(t *testing.T) {
	d := &fakeDriver{claimErr: errors.New("busy")}
	r := startedReader(t, d)

	_, err := r.ReadTag(context.Background())

	assert.ErrorIs(t, err, nfc.ErrTagRead)
	assert.EqualValues(t, 0, d.releases.Load())
}

func TestReader_ReadTag_OneClaimAtATime(t *testing.T) {
	block := make(chan struct{})
	d := &fakeDriver{readFn: func(ctx context.Context) (nfc.Tag, error) {
		select {
		case <-block:
		case <-ctx.Done():
			return nfc.Tag{}, ctx.Err()
		}
		return nfc.Tag{}, nil
	}}
	r := startedReader(t, d)

	go func() { _, _ = r.ReadTag(context.Background()) }()
	require.Eventually(t, func() bool { return d.claims.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadTag(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, d.claims.Load())
	close(block)
}
