package app

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aq2208/campuspay-terminal/configs"
)

var ErrBadCACert = errors.New("unable to parse CA cert")

// InitReaderBridgeConn prepares the connection to the NFC reader bridge. The
// connection is lazy; the bridge health check in nfc.Reader.Start is the
// first real round trip.
func InitReaderBridgeConn(cfg configs.Config) (*grpc.ClientConn, func(), error) {
	rb := cfg.ReaderBridge
	dialTimeout := rb.Timeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	opts := []grpc.DialOption{
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  200 * time.Millisecond,
				Multiplier: 1.6,
				Jitter:     0.2,
				MaxDelay:   5 * time.Second,
			},
			MinConnectTimeout: dialTimeout,
		}),
		grpc.WithUserAgent(cfg.App.Name),
	}

	// TLS vs. insecure; a local bridge usually listens on loopback without TLS
	if rb.UseTLS {
		var creds credentials.TransportCredentials
		if rb.CACertPath != "" {
			pem, err := os.ReadFile(rb.CACertPath)
			if err != nil {
				return nil, nil, err
			}
			pool := x509.NewCertPool()
			if ok := pool.AppendCertsFromPEM(pem); !ok {
				return nil, nil, ErrBadCACert
			}
			tlsCfg := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
			if sn := rb.ServerName; sn != "" {
				tlsCfg.ServerName = sn
			}
			creds = credentials.NewTLS(tlsCfg)
		} else {
			creds = credentials.NewClientTLSFromCert(nil, rb.ServerName)
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if n := rb.MaxRecvBytes; n > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(n)))
	}
	if n := rb.MaxSendBytes; n > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(n)))
	}

	conn, err := grpc.NewClient(rb.Target, opts...)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = conn.Close() }
	return conn, cleanup, nil
}
