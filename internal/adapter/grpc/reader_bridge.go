// Package grpc drives the NFC reader bridge, the daemon that owns the reader
// hardware, over gRPC.
package grpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aq2208/campuspay-terminal/internal/nfc"
)

const (
	ServiceName = "campuspay.nfc.v1.TagReader"

	methodClaim    = "/" + ServiceName + "/Claim"
	methodReadNdef = "/" + ServiceName + "/ReadNdef"
	methodRelease  = "/" + ServiceName + "/Release"
)

var ErrNotServing = errors.New("reader bridge not serving")

// ReaderBridge implements nfc.Driver.
type ReaderBridge struct {
	conn    grpc.ClientConnInterface
	health  healthpb.HealthClient
	timeout time.Duration
	ua      string
}

func NewReaderBridge(conn grpc.ClientConnInterface, timeout time.Duration, userAgent string) *ReaderBridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReaderBridge{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		timeout: timeout,
		ua:      userAgent,
	}
}

// Start checks the bridge reports the tag reader service as serving.
func (b *ReaderBridge) Start(ctx context.Context) error {
	ctx, cancel := b.bounded(ctx)
	defer cancel()

	resp, err := b.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("reader bridge health: %w", err)
	}
	if st := resp.GetStatus(); st != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, st)
	}
	return nil
}

func (b *ReaderBridge) Claim(ctx context.Context) (nfc.Handle, error) {
	ctx, cancel := b.bounded(ctx)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{"client": b.ua})
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := b.conn.Invoke(ctx, methodClaim, req, out); err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	sid := out.GetFields()["session_id"].GetStringValue()
	if sid == "" {
		return nil, errors.New("claim: bridge returned no session id")
	}
	return &bridgeHandle{b: b, session: sid}, nil
}

// bounded applies the per-call timeout unless the caller already set a deadline.
func (b *ReaderBridge) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.ua != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "user-agent", b.ua)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

type bridgeHandle struct {
	b       *ReaderBridge
	session string
}

// Read waits for a tag with no deadline of its own.
func (h *bridgeHandle) Read(ctx context.Context) (nfc.Tag, error) {
	if h.b.ua != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "user-agent", h.b.ua)
	}
	out := &structpb.Struct{}
	if err := h.b.conn.Invoke(ctx, methodReadNdef, h.sessionReq(), out); err != nil {
		return nfc.Tag{}, fmt.Errorf("read ndef: %w", err)
	}
	return tagFromStruct(out)
}

func (h *bridgeHandle) Release(ctx context.Context) error {
	ctx, cancel := h.b.bounded(ctx)
	defer cancel()
	if err := h.b.conn.Invoke(ctx, methodRelease, h.sessionReq(), &structpb.Struct{}); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

func (h *bridgeHandle) sessionReq() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(h.session),
	}}
}

// tagFromStruct maps {tag_id, records: [{tnf, type, payload}]} with base64
// type and payload.
func tagFromStruct(s *structpb.Struct) (nfc.Tag, error) {
	f := s.GetFields()
	tag := nfc.Tag{ID: f["tag_id"].GetStringValue()}
	for i, v := range f["records"].GetListValue().GetValues() {
		rf := v.GetStructValue().GetFields()
		typ, err := base64.StdEncoding.DecodeString(rf["type"].GetStringValue())
		if err != nil {
			return nfc.Tag{}, fmt.Errorf("record %d type: %w", i, err)
		}
		payload, err := base64.StdEncoding.DecodeString(rf["payload"].GetStringValue())
		if err != nil {
			return nfc.Tag{}, fmt.Errorf("record %d payload: %w", i, err)
		}
		tag.Records = append(tag.Records, nfc.Record{
			TNF:     uint8(rf["tnf"].GetNumberValue()),
			Type:    typ,
			Payload: payload,
		})
	}
	return tag, nil
}

var _ nfc.Driver = (*ReaderBridge)(nil)
