package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	gocache "github.com/patrickmn/go-cache"
)

// tokenSafetyMargin is subtracted from a token's stated lifetime before it
// is cached, so a cached token is never handed out moments before expiry.
const tokenSafetyMargin = 5 * time.Minute

// Broker mints short-lived, installation-scoped clients from the app's
// long-lived private key. Each task gets its own client constructed from a
// fresh (or still-valid cached) credential; no client is shared mutable
// state between tasks.
type Broker interface {
	InstallationClient(ctx context.Context, installationID int64) (Client, error)
	InstallationToken(ctx context.Context, installationID int64) (string, time.Time, error)
}

type appBroker struct {
	appID          int64
	privateKeyPath string
	tokens         *gocache.Cache
	logger         *slog.Logger
}

// NewBroker creates a credential broker for the given GitHub App. Minted
// installation tokens are cached per installation until shortly before
// GitHub's stated expiry to reduce load on the token-exchange endpoint.
func NewBroker(appID int64, privateKeyPath string, logger *slog.Logger) Broker {
	return &appBroker{
		appID:          appID,
		privateKeyPath: privateKeyPath,
		tokens:         gocache.New(gocache.NoExpiration, 10*time.Minute),
		logger:         logger,
	}
}

// InstallationClient returns a client scoped to the given installation.
func (b *appBroker) InstallationClient(ctx context.Context, installationID int64) (Client, error) {
	token, _, err := b.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return NewTokenClient(ctx, token, b.logger), nil
}

// InstallationToken exchanges a self-signed app JWT for an installation
// access token. The token value must never be logged.
func (b *appBroker) InstallationToken(ctx context.Context, installationID int64) (string, time.Time, error) {
	key := strconv.FormatInt(installationID, 10)
	if cached, expiry, ok := b.tokens.GetWithExpiration(key); ok {
		return cached.(string), expiry, nil
	}

	privateKey, err := os.ReadFile(b.privateKeyPath)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read private key from %s: %w", b.privateKeyPath, err)
	}

	// The apps transport signs a short-lived RS256 JWT asserting the app's
	// identity, which GitHub's token-exchange endpoint trades for an
	// installation-scoped token.
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, b.appID, privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create installation token for installation %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return "", time.Time{}, fmt.Errorf("received an empty installation token")
	}

	expiresAt := token.GetExpiresAt().Time
	if ttl := time.Until(expiresAt) - tokenSafetyMargin; ttl > 0 {
		b.tokens.Set(key, token.GetToken(), ttl)
	}

	b.logger.Info("minted installation token",
		"installation_id", installationID,
		"expires_at", expiresAt,
	)
	return token.GetToken(), expiresAt, nil
}
