package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultStoreBackend        = StoreBackendFirestore
	defaultMongoDatabase       = "shopfront"
	defaultMongoConnectTimeout = 10 * time.Second
	defaultRateLimitPublic     = 120
	defaultRateLimitAuth       = 240
	defaultRecommendLimit      = 10
	defaultRecommendMaxLimit   = 50
	defaultRecommendNeighbors  = 20
	defaultSecurityEnvironment = "local"
	defaultSecretsFallbackFile = ".secrets.local"
	defaultFirebaseVerify      = 5 * time.Second
)

// Supported store backends.
const (
	StoreBackendFirestore = "firestore"
	StoreBackendMongo     = "mongo"
	StoreBackendMemory    = "memory"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server          ServerConfig
	Firebase        FirebaseConfig
	Store           StoreConfig
	Firestore       FirestoreConfig
	Mongo           MongoConfig
	Redis           RedisConfig
	RateLimits      RateLimitConfig
	Recommendations RecommendationConfig
	Security        SecurityConfig
	Secrets         SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	// VerifyTimeout bounds each ID token verification, including a signing key refresh.
	VerifyTimeout time.Duration
}

// StoreConfig selects the catalog/order/shopper backend.
type StoreConfig struct {
	Backend     string
	FixtureFile string // YAML dataset the memory backend starts from
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// MongoConfig stores MongoDB connection parameters.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig points the rate limiter at a shared Redis. An empty Addr keeps limiting in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	PublicPerMinute        int
	AuthenticatedPerMinute int
}

// RecommendationConfig bounds result sizes and neighbourhood size.
type RecommendationConfig struct {
	DefaultLimit  int
	MaxLimit      int
	NeighborLimit int
}

// SecurityConfig groups deployment identity settings.
type SecurityConfig struct {
	Environment string
}

// SecretsConfig configures the Secret Manager fetcher used to resolve secret references.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	names := e.RedactedNames()
	if len(names) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(names, ", "))
}

// RedactedNames returns the hashed secret identifiers, safe to log.
func (e *MissingSecretsError) RedactedNames() []string {
	return e.sorted(func(s missingSecret) string { return s.redacted })
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	return e.sorted(func(s missingSecret) string { return s.name })
}

func (e *MissingSecretsError) sorted(pick func(missingSecret) string) []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, len(e.secrets))
	for i, secret := range e.secrets {
		out[i] = pick(secret)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// environment layers the dotenv file, the process environment and the explicit map. Later layers win.
func (o loaderOptions) environment() (envValues, error) {
	values, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if key = strings.TrimSpace(key); ok && key != "" {
				values[key] = value
			}
		}
	}
	for key, value := range o.envMap {
		values[key] = value
	}
	return values, nil
}

// EnvironmentValues returns the merged environment Load reads from. Commands use it to build the
// secret fetcher before calling Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	return newLoaderOptions(opts).environment()
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment, leaving the .env file and WithEnvMap values.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret-backed fields ("Mongo.URI", "Redis.Password") that must resolve
// to a non-empty value.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load builds the configuration from defaults and the merged environment, then resolves secret
// references and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	env, err := options.environment()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.str("API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: env.str("API_FIREBASE_CREDENTIALS_FILE", ""),
			VerifyTimeout:   env.duration("API_FIREBASE_VERIFY_TIMEOUT", defaultFirebaseVerify),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(env.str("API_STORE_BACKEND", defaultStoreBackend)),
			FixtureFile: env.str("API_STORE_FIXTURE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    env.str("API_FIRESTORE_PROJECT_ID", env.str("API_FIREBASE_PROJECT_ID", "")),
			EmulatorHost: env.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Mongo: MongoConfig{
			URI:            env.str("API_MONGO_URI", ""),
			Database:       env.str("API_MONGO_DATABASE", defaultMongoDatabase),
			ConnectTimeout: env.duration("API_MONGO_CONNECT_TIMEOUT", defaultMongoConnectTimeout),
		},
		Redis: RedisConfig{
			Addr:     env.str("API_REDIS_ADDR", ""),
			Password: env.str("API_REDIS_PASSWORD", ""),
			DB:       env.integer("API_REDIS_DB", 0),
		},
		RateLimits: RateLimitConfig{
			PublicPerMinute:        env.integer("API_RATELIMIT_PUBLIC_PER_MIN", defaultRateLimitPublic),
			AuthenticatedPerMinute: env.integer("API_RATELIMIT_AUTH_PER_MIN", defaultRateLimitAuth),
		},
		Recommendations: RecommendationConfig{
			DefaultLimit:  env.integer("API_RECOMMEND_DEFAULT_LIMIT", defaultRecommendLimit),
			MaxLimit:      env.integer("API_RECOMMEND_MAX_LIMIT", defaultRecommendMaxLimit),
			NeighborLimit: env.integer("API_RECOMMEND_NEIGHBORS", defaultRecommendNeighbors),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(env.str("API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
		Secrets: SecretsConfig{
			ProjectID:    env.str("API_SECRETS_PROJECT_ID", env.str("API_FIREBASE_PROJECT_ID", "")),
			FallbackFile: env.str("API_SECRETS_FALLBACK_FILE", defaultSecretsFallbackFile),
		},
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Mongo.URI", &cfg.Mongo.URI},
		{"Redis.Password", &cfg.Redis.Password},
	}
	resolved := make(map[string]string, len(secretFields))
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string
	check := func(ok bool, field string) {
		if !ok {
			invalid = append(invalid, field)
		}
	}

	check(cfg.Server.Port != "", "Server.Port")
	switch cfg.Store.Backend {
	case StoreBackendFirestore:
		check(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	case StoreBackendMongo:
		check(strings.TrimSpace(cfg.Mongo.URI) != "", "Mongo.URI")
		check(strings.TrimSpace(cfg.Mongo.Database) != "", "Mongo.Database")
	case StoreBackendMemory:
	default:
		check(false, "Store.Backend")
	}
	check(cfg.Redis.DB >= 0, "Redis.DB")
	check(cfg.RateLimits.PublicPerMinute > 0, "RateLimits.PublicPerMinute")
	check(cfg.RateLimits.AuthenticatedPerMinute > 0, "RateLimits.AuthenticatedPerMinute")

	rec := cfg.Recommendations
	check(rec.MaxLimit > 0, "Recommendations.MaxLimit")
	check(rec.DefaultLimit > 0 && rec.DefaultLimit <= rec.MaxLimit, "Recommendations.DefaultLimit")
	check(rec.NeighborLimit > 0, "Recommendations.NeighborLimit")

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// findMissingSecrets reports required names whose resolved value is blank.
func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []missingSecret
	seen := make(map[string]struct{}, len(required))
	for _, name := range required {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; name == "" || dup {
			continue
		}
		seen[name] = struct{}{}
		if resolved[name] == "" {
			missing = append(missing, missingSecret{name: name, redacted: redactSecretName(name)})
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

// normalizeSecretReference rewrites the legacy sm:// scheme to secret://.
func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

// loadDotEnv reads KEY=VALUE lines. A missing file yields an empty map; blank lines, comments and an
// "export " prefix are skipped, and one layer of quotes is stripped from values.
func loadDotEnv(path string) (envValues, error) {
	values := make(envValues)
	if path == "" {
		return values, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}

// envValues is the merged environment. Blank or unparsable values fall back to the default.
type envValues map[string]string

func (e envValues) str(key, fallback string) string {
	if value := e[key]; value != "" {
		return value
	}
	return fallback
}

func (e envValues) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e[key]); err == nil {
		return d
	}
	return fallback
}

func (e envValues) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(e[key]); err == nil {
		return n
	}
	return fallback
}
