package api

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// TLSConfig carries spec.md §6's static certificate configuration
// (tlskeyfile/tlscertfile/tlskeylog), simplified from the teacher's
// certificate-authority-issued node certs (pkg/security/ca.go) down to a
// single static key pair plus an optional client-CA pool for mTLS —
// this service has no dynamically-joining nodes to issue certs to.
type TLSConfig struct {
	CertFile   string
	KeyFile    string
	ClientCAs  string // optional: PEM bundle of CAs trusted for client certs
	KeyLogFile string // optional: TLS secrets log, for packet-capture debugging
}

func (c TLSConfig) build() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("api: loading tls key pair: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if c.ClientCAs != "" {
		pem, err := os.ReadFile(c.ClientCAs)
		if err != nil {
			return nil, fmt.Errorf("api: reading client CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("api: no certificates found in client CA bundle %s", c.ClientCAs)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	if c.KeyLogFile != "" {
		f, err := os.OpenFile(c.KeyLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("api: opening tls key log: %w", err)
		}
		cfg.KeyLogWriter = f
	}

	return cfg, nil
}

// Listen binds a TLS listener on addr and builds the gRPC server, wiring
// the session and interceptor chain and the hand-built ServiceDesc. It
// does not start serving; call Serve with the result.
func (s *Server) Listen(addr string, tlsCfg TLSConfig) (net.Listener, error) {
	cfg, err := tlsCfg.build()
	if err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("api: listen on %s: %w", addr, err)
	}

	creds := credentials.NewTLS(cfg)
	s.grpcServer = grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(MetricsInterceptor(), SessionInterceptor(s.sessions)),
		grpc.StreamInterceptor(StreamSessionInterceptor(s.sessions)),
	)
	s.grpcServer.RegisterService(&ServiceDesc, s)

	return lis, nil
}

// Serve blocks, accepting connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC API listening")
	return s.grpcServer.Serve(lis)
}

// Stop gracefully drains in-flight RPCs before returning.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
