package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shopfront/api/internal/platform/config"
)

const defaultConnectTimeout = 10 * time.Second

// ErrProviderClosed is returned once Close has been called.
var ErrProviderClosed = errors.New("mongo: provider is closed")

// Provider owns the shared MongoDB client and the configured database handle.
type Provider struct {
	client   *mongo.Client
	database *mongo.Database
	closed   atomic.Bool
}

// ProviderOption customises client construction.
type ProviderOption func(*options.ClientOptions)

// WithClientOptions applies extra driver options such as a custom monitor.
func WithClientOptions(apply func(*options.ClientOptions)) ProviderOption {
	return ProviderOption(apply)
}

// NewProvider connects to MongoDB and verifies the primary is reachable within the configured
// connect timeout.
func NewProvider(ctx context.Context, cfg config.MongoConfig, opts ...ProviderOption) (*Provider, error) {
	if ctx == nil {
		return nil, errors.New("mongo: context is required")
	}
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo: uri is required")
	}
	dbName := strings.TrimSpace(cfg.Database)
	if dbName == "" {
		return nil, errors.New("mongo: database is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	clientOpts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	for _, opt := range opts {
		if opt != nil {
			opt(clientOpts)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Provider{client: client, database: client.Database(dbName)}, nil
}

// Collection returns a handle to the named collection.
func (p *Provider) Collection(name string) (*mongo.Collection, error) {
	if p == nil || p.database == nil {
		return nil, errors.New("mongo: provider is nil")
	}
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}
	return p.database.Collection(name), nil
}

// Database exposes the configured database handle.
func (p *Provider) Database() *mongo.Database {
	if p == nil {
		return nil
	}
	return p.database
}

// Ping checks connectivity to the primary.
func (p *Provider) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return errors.New("mongo: provider is nil")
	}
	if p.closed.Load() {
		return ErrProviderClosed
	}
	return WrapError("mongo.ping", p.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client. The Provider cannot be reused afterwards.
func (p *Provider) Close(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return p.client.Disconnect(ctx)
}
