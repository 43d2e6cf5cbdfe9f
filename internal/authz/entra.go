package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Default endpoints for the identity-provider oracle. Both are overridable
// for tests and sovereign-cloud tenants.
const (
	defaultGraphBaseURL  = "https://graph.microsoft.com/v1.0"
	defaultTokenURLShape = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	defaultScope         = "https://graph.microsoft.com/.default"
)

// Membership lookup retry tuning. The source behavior had no retry at all;
// a short bounded retry is applied because a transient failure here aborts
// the whole run (see ErrUnavailable).
const (
	defaultRetryAttempts = 2
	retryBackoff         = 3 * time.Second
)

// maxGroupResponseBytes caps the getMemberGroups response read.
const maxGroupResponseBytes = 4 << 20

// EntraConfig configures the identity-provider oracle.
type EntraConfig struct {
	// TenantID is the directory tenant, e.g. "contoso.onmicrosoft.com".
	TenantID string

	// ClientID and ClientSecret are the app registration's client
	// credentials. The secret is sourced from the environment by the
	// config layer, never from a file.
	ClientID     string
	ClientSecret string

	// UserPrincipal is the UPN of the identity whose groups are resolved,
	// e.g. "jdoe@contoso.com". The caller builds it from the logged-on
	// username and the tenant's UPN suffix.
	UserPrincipal string

	// TokenURL and GraphBaseURL override the default endpoints.
	TokenURL     string
	GraphBaseURL string

	// RetryAttempts is the number of retries after the first attempt.
	// Zero means the default of 2.
	RetryAttempts int
}

// EntraOracle resolves group membership through the identity provider's
// directory API using an OAuth2 client-credentials grant. It returns group
// object IDs (the GroupID form of the desired-state file).
type EntraOracle struct {
	cfg        EntraConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEntraOracle creates an identity-provider oracle. httpClient may be nil,
// in which case http.DefaultClient is used (callers normally pass a client
// with a timeout).
func NewEntraOracle(cfg EntraConfig, httpClient *http.Client, logger *slog.Logger) *EntraOracle {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cfg.TokenURL == "" {
		cfg.TokenURL = fmt.Sprintf(defaultTokenURLShape, cfg.TenantID)
	}

	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = defaultGraphBaseURL
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	return &EntraOracle{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Groups acquires a token and queries the member groups for the configured
// user principal. Transient failures are retried a bounded number of times;
// the final error is wrapped in ErrUnavailable so callers abort the run.
func (o *EntraOracle) Groups(ctx context.Context) (Memberships, error) {
	var groups Memberships

	backoff := retry.WithMaxRetries(uint64(o.cfg.RetryAttempts), retry.NewConstant(retryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ids, attemptErr := o.fetchGroups(ctx)
		if attemptErr != nil {
			o.logger.Warn("group membership query failed",
				slog.String("principal", o.cfg.UserPrincipal),
				slog.String("error", attemptErr.Error()),
			)

			return attemptErr
		}

		groups = NewMemberships(ids)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	o.logger.Info("group membership resolved",
		slog.String("principal", o.cfg.UserPrincipal),
		slog.Int("groups", len(groups)),
	)

	return groups, nil
}

// fetchGroups performs one token acquisition plus one getMemberGroups call.
func (o *EntraOracle) fetchGroups(ctx context.Context) ([]string, error) {
	cc := &clientcredentials.Config{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		TokenURL:     o.cfg.TokenURL,
		Scopes:       []string{defaultScope},
	}

	// Route the oauth2 exchange through our HTTP client so its timeout applies.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)

	tok, err := cc.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, retry.RetryableError(fmt.Errorf("acquiring token: %w", err))
	}

	return o.memberGroups(ctx, tok.AccessToken)
}

// memberGroups calls POST /users/{upn}/getMemberGroups with
// securityEnabledOnly, returning the group object IDs.
func (o *EntraOracle) memberGroups(ctx context.Context, accessToken string) ([]string, error) {
	reqBody, err := json.Marshal(map[string]bool{"securityEnabledOnly": true})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/getMemberGroups",
		o.cfg.GraphBaseURL, url.PathEscape(o.cfg.UserPrincipal))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGroupResponseBytes))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := fmt.Errorf("getMemberGroups returned status %d: %s", resp.StatusCode, truncate(body))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.RetryableError(httpErr)
		}

		return nil, httpErr
	}

	var parsed struct {
		Value []string `json:"value"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding getMemberGroups response: %w", err)
	}

	return parsed.Value, nil
}

// truncate limits error-message bodies to a readable length.
func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}

	return string(b)
}
