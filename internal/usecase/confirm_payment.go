package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// ConfirmPayment runs the vendor-side NFC confirmation: read the buyer's tag,
// verify the buyer, transfer the order total, then mark the order paid.
// It keeps at most one flow per order and never runs two steps of a flow at once.
type ConfirmPayment struct {
	reader TagReader
	be     PaymentBackend
	set    *Settlement
	log    *slog.Logger
	newID  func() string

	mu    sync.Mutex
	flows map[int64]*flow
}

func NewConfirmPayment(reader TagReader, be PaymentBackend, set *Settlement, log *slog.Logger) *ConfirmPayment {
	if log == nil {
		log = slog.Default()
	}
	if set == nil {
		set = &Settlement{}
	}
	if set.Log == nil {
		set.Log = log
	}
	set.init()
	return &ConfirmPayment{
		reader: reader,
		be:     be,
		set:    set,
		log:    log,
		newID:  uuid.NewString,
		flows:  map[int64]*flow{},
	}
}

// StartReader readies the NFC hardware. A failure is logged and returned, but
// the terminal keeps running; reads fail until the reader comes up.
func (c *ConfirmPayment) StartReader(ctx context.Context) error {
	if c.reader == nil {
		c.log.Warn("nfc reader not configured", "error", ErrReaderUnavailable)
		return ErrReaderUnavailable
	}
	if err := c.reader.Start(ctx); err != nil {
		c.log.Warn("nfc reader unavailable, running degraded", "error", err)
		return err
	}
	c.log.Info("nfc reader ready")
	return nil
}

func (c *ConfirmPayment) ReaderReady() bool {
	return c.reader != nil && c.reader.Ready()
}

// Begin opens the confirmation for an order, or returns the one already open.
func (c *ConfirmPayment) Begin(order domain.Order) (Snapshot, error) {
	if order.IsPaid {
		return Snapshot{}, ErrAlreadyPaid
	}
	req := domain.TransferRequest{RecipientPhone: order.UserPhoneNumber, Amount: order.TotalPrice}
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.flows[order.ID]; ok {
		if f.state == StateIdle {
			f.order = order
		}
		return f.snapshot(), nil
	}
	f := &flow{order: order, state: StateIdle}
	c.flows[order.ID] = f
	return f.snapshot(), nil
}

func (c *ConfirmPayment) Snapshot(orderID int64) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flows[orderID]
	if !ok {
		return Snapshot{}, ErrFlowNotFound
	}
	return f.snapshot(), nil
}

// ReadTag waits for a tag and decodes it. It blocks until a tag is read, the
// read is cancelled or the reader fails.
func (c *ConfirmPayment) ReadTag(ctx context.Context, orderID int64) (Snapshot, error) {
	c.mu.Lock()
	f, ok := c.flows[orderID]
	if !ok {
		c.mu.Unlock()
		return Snapshot{}, ErrFlowNotFound
	}
	if !f.state.readable() {
		snap := f.snapshot()
		c.mu.Unlock()
		return snap, rejectFrom(snap.State)
	}
	readCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.readSeq++
	seq := f.readSeq
	f.state = StateReading
	f.cred, f.alert, f.refresh = nil, "", false
	f.cancelRead, f.readDone = cancel, done
	c.mu.Unlock()

	tag, err := c.readTag(readCtx)
	cancel()
	close(done)

	c.mu.Lock()
	defer c.mu.Unlock()
	if f.readSeq != seq {
		return f.snapshot(), context.Canceled
	}
	f.cancelRead, f.readDone = nil, nil
	f.state = StateIdle

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return f.snapshot(), err
	case err != nil:
		c.log.Warn("nfc read failed", "order_id", orderID, "error", err)
		f.alert = alertReadFailed
		return f.snapshot(), err
	}

	cred := nfc.Decode(tag)
	if cred == nil {
		c.log.Info("nfc tag carried no credential", "order_id", orderID, "tag_id", tag.ID)
		return f.snapshot(), ErrNoCredential
	}
	f.cred = cred
	f.state = StateDecoded
	return f.snapshot(), nil
}

func (c *ConfirmPayment) readTag(ctx context.Context) (nfc.Tag, error) {
	if c.reader == nil {
		return nfc.Tag{}, ErrReaderUnavailable
	}
	return c.reader.ReadTag(ctx)
}

// EditSecret replaces the secret read from the tag.
func (c *ConfirmPayment) EditSecret(orderID int64, secret string) (Snapshot, error) {
	if strings.TrimSpace(secret) == "" {
		return Snapshot{}, ErrEmptySecret
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flows[orderID]
	if !ok {
		return Snapshot{}, ErrFlowNotFound
	}
	if f.state != StateDecoded {
		return f.snapshot(), rejectFrom(f.state)
	}
	f.cred.Secret = secret
	return f.snapshot(), nil
}

// Cancel returns the flow to IDLE. A read in flight is cancelled and Cancel
// returns only after the reader has let go of the hardware.
func (c *ConfirmPayment) Cancel(orderID int64) (Snapshot, error) {
	c.mu.Lock()
	f, ok := c.flows[orderID]
	if !ok {
		c.mu.Unlock()
		return Snapshot{}, ErrFlowNotFound
	}

	switch f.state {
	case StateReading:
		cancel, done := f.cancelRead, f.readDone
		f.readSeq++
		f.state = StateIdle
		f.cancelRead, f.readDone = nil, nil
		f.alert = ""
		snap := f.snapshot()
		c.mu.Unlock()

		cancel()
		<-done
		return snap, nil
	case StateIdle, StateDecoded, StateVerifyFailed, StateTransferFailed:
		f.state = StateIdle
		f.cred, f.alert = nil, ""
		snap := f.snapshot()
		c.mu.Unlock()
		return snap, nil
	default:
		snap := f.snapshot()
		c.mu.Unlock()
		return snap, rejectFrom(snap.State)
	}
}

// Close forgets the flow. A pending read is cancelled first.
func (c *ConfirmPayment) Close(orderID int64) error {
	c.mu.Lock()
	f, ok := c.flows[orderID]
	if !ok {
		c.mu.Unlock()
		return ErrFlowNotFound
	}
	st := f.state
	c.mu.Unlock()

	if st == StateReading {
		if _, err := c.Cancel(orderID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f.state.busy() {
		return ErrBusy
	}
	delete(c.flows, orderID)
	return nil
}

// Confirm runs verify, transfer and settle in order, stopping at the first
// failure. No step is retried. A failed settle after a successful transfer is
// flagged for reconciliation, never reversed.
func (c *ConfirmPayment) Confirm(ctx context.Context, sess session.Context, orderID int64) (Snapshot, error) {
	c.mu.Lock()
	f, ok := c.flows[orderID]
	if !ok {
		c.mu.Unlock()
		return Snapshot{}, ErrFlowNotFound
	}
	if f.state != StateDecoded {
		snap := f.snapshot()
		c.mu.Unlock()
		return snap, rejectFrom(snap.State)
	}
	cred := *f.cred
	order := f.order
	f.state = StateVerifying
	f.attemptID = c.newID()
	f.alert = ""
	a := Attempt{
		ID:        f.attemptID,
		OrderID:   order.ID,
		Flow:      FlowNFC,
		Amount:    order.TotalPrice,
		Recipient: order.UserPhoneNumber,
		CreatedAt: c.set.Now(),
	}
	c.mu.Unlock()

	log := c.log.With("order_id", order.ID, "attempt_id", a.ID)

	release, err := c.set.claim(ctx, order.ID)
	if err != nil {
		return c.abort(f, err), err
	}
	defer release()

	// once money may move, the caller going away does not stop the sequence
	ctx = context.WithoutCancel(ctx)

	log.Info("verifying buyer", "identity", cred.Identity)
	err = c.set.timed(FlowNFC, StepVerify, func() error {
		return c.be.VerifyUser(ctx, sess, cred)
	})
	cred = nfc.Credential{}
	if err != nil {
		log.Warn("buyer verification failed", "error", err)
		return c.fail(ctx, f, a, StateVerifyFailed, StepVerify, err)
	}
	c.advance(f, StateTransferring)

	req := domain.TransferRequest{RecipientPhone: order.UserPhoneNumber, Amount: order.TotalPrice}
	log.Info("transferring", "recipient", req.RecipientPhone, "amount", req.Amount.StringFixed(2))
	err = c.set.timed(FlowNFC, StepTransfer, func() error {
		return c.be.TransferBuyerAndVendor(ctx, sess, req)
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		return c.fail(ctx, f, a, StateTransferFailed, StepTransfer, err)
	}
	c.set.transferred(ctx, a)
	c.advance(f, StateSettling)

	err = c.set.timed(FlowNFC, StepSettle, func() error {
		return c.be.PayOrder(ctx, sess, order.ID)
	})
	if err != nil {
		return c.fail(ctx, f, a, StateSettleFailed, StepSettle, err)
	}
	c.set.settled(ctx, a)

	c.mu.Lock()
	f.state = StateDone
	f.alert = alertConfirmed
	f.refresh = true
	snap := f.snapshot()
	c.mu.Unlock()

	a.Outcome = string(StateDone)
	c.set.finish(ctx, a)
	log.Info("payment confirmed")
	return snap, nil
}

// abort puts a flow rejected before any backend call back to DECODED.
func (c *ConfirmPayment) abort(f *flow, err error) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.state = StateDecoded
	f.alert = err.Error()
	return f.snapshot()
}

func (c *ConfirmPayment) advance(f *flow, st State) {
	c.mu.Lock()
	f.state = st
	f.cred = nil
	c.mu.Unlock()
}

func (c *ConfirmPayment) fail(ctx context.Context, f *flow, a Attempt, st State, step Step, cause error) (Snapshot, error) {
	reason := domain.Reason(cause)

	c.mu.Lock()
	f.state = st
	f.cred = nil
	f.alert = reason
	if st == StateSettleFailed {
		f.alert = alertSettleFailed
	}
	snap := f.snapshot()
	c.mu.Unlock()

	a.Outcome = string(st)
	a.Reason = reason
	if st == StateSettleFailed {
		c.set.flagGap(ctx, a)
	}
	c.set.finish(ctx, a)
	return snap, &StepError{Step: step, Reason: reason, Err: cause}
}
