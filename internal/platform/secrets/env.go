package secrets

import (
	"context"
	"strings"

	"google.golang.org/api/option"
)

// NewFetcherFromEnv builds a Fetcher from API_* environment values. It runs before config.Load,
// which needs the fetcher to resolve secret references. Explicit opts are applied last.
func NewFetcherFromEnv(ctx context.Context, env map[string]string, opts ...Option) (*Fetcher, error) {
	return NewFetcher(ctx, append(envOptions(env), opts...)...)
}

func envOptions(env map[string]string) []Option {
	lookup := func(key string) string { return strings.TrimSpace(env[key]) }

	project := lookup("API_SECRETS_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}
	opts := []Option{WithProject(project)}
	if path := lookup("API_SECRETS_FALLBACK_FILE"); path != "" {
		opts = append(opts, WithFallbackFile(path))
	}
	if file := lookup("API_FIREBASE_CREDENTIALS_FILE"); file != "" {
		opts = append(opts, WithClientOptions(option.WithCredentialsFile(file)))
	}
	return opts
}
