package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielvega/portfolio-backend/pkg/config"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

var (
	errBaseURLRequired = errors.New("identity base url is required")
	errRealmRequired   = errors.New("identity realm is required")
	errClientRequired  = errors.New("identity admin client id is required")
	errSecretRequired  = errors.New("identity admin secret is required")
	errLoggerRequired  = errors.New("identity logger is required")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the external identity provider's admin and token
// endpoints. Credentials live in the provider; the platform only stores
// the identity id it hands back.
type Client struct {
	baseURL  string
	realm    string
	clientID string
	secret   string
	http     httpDoer
	logger   *logger.Logger

	mtx           sync.Mutex
	adminToken    string
	adminTokenExp time.Time
}

// RegisterParams captures the fields sent when provisioning a login.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// TokenPair is the provider's token response for a password grant.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// NewClient validates the configuration and builds the provider client.
func NewClient(cfg config.IdentityConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.Realm) == "" {
		return nil, errRealmRequired
	}
	if strings.TrimSpace(cfg.AdminClientID) == "" {
		return nil, errClientRequired
	}
	if strings.TrimSpace(cfg.AdminSecret) == "" {
		return nil, errSecretRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		realm:    cfg.Realm,
		clientID: cfg.AdminClientID,
		secret:   cfg.AdminSecret,
		http:     &http.Client{Timeout: timeout},
		logger:   logg,
	}, nil
}

// Register provisions a login at the provider and returns its identity id.
func (c *Client) Register(ctx context.Context, params RegisterParams) (string, error) {
	token, err := c.ensureAdminToken(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"username":  params.Email,
		"email":     params.Email,
		"firstName": params.FirstName,
		"lastName":  params.LastName,
		"enabled":   true,
		"credentials": []map[string]any{
			{"type": "password", "value": params.Password, "temporary": false},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode register payload: %w", err)
	}

	endpoint := c.adminURL("users")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity register failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", c.mapStatus(resp, "register")
	}

	identityID := idFromLocation(resp.Header.Get("Location"))
	if identityID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "identity provider returned no location for new user")
	}
	c.logger.Info(c.logger.WithField(ctx, "identity_id", identityID), "identity registered")
	return identityID, nil
}

// Login exchanges user credentials for a token pair via the password grant.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)
	form.Set("username", email)
	form.Set("password", password)

	pair, err := c.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Delete removes the provider-side login. Used to roll back registration
// when the local transaction fails.
func (c *Client) Delete(ctx context.Context, identityID string) error {
	if strings.TrimSpace(identityID) == "" {
		return errors.New("identity id is required")
	}
	token, err := c.ensureAdminToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.adminURL("users", identityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity delete failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.mapStatus(resp, "delete")
	}
	return nil
}

func (c *Client) ensureAdminToken(ctx context.Context) (string, error) {
	c.mtx.Lock()
	if c.adminToken != "" && time.Now().Before(c.adminTokenExp) {
		token := c.adminToken
		c.mtx.Unlock()
		return token, nil
	}
	c.mtx.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)

	pair, err := c.requestToken(ctx, form)
	if err != nil {
		return "", err
	}

	c.mtx.Lock()
	c.adminToken = pair.AccessToken
	// Refresh a little early so in-flight requests never carry a stale token.
	c.adminTokenExp = time.Now().Add(time.Duration(pair.ExpiresIn)*time.Second - 10*time.Second)
	c.mtx.Unlock()
	return pair.AccessToken, nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenPair, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapStatus(resp, "token")
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode identity token response")
	}
	if pair.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider returned an empty access token")
	}
	return &pair, nil
}

func (c *Client) adminURL(parts ...string) string {
	joined := path.Join(append([]string{"admin", "realms", c.realm}, parts...)...)
	return c.baseURL + "/" + joined
}

func (c *Client) mapStatus(resp *http.Response, op string) error {
	snippet := readSnippet(resp.Body)
	code := codeForStatus(resp.StatusCode)
	message := fmt.Sprintf("identity %s failed with status %d", op, resp.StatusCode)
	err := pkgerrors.New(code, message)
	if snippet != "" {
		err = err.WithDetails(map[string]any{"response": snippet})
	}
	return err
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func readSnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func idFromLocation(location string) string {
	location = strings.TrimRight(strings.TrimSpace(location), "/")
	if location == "" {
		return ""
	}
	idx := strings.LastIndex(location, "/")
	if idx < 0 {
		return location
	}
	return location[idx+1:]
}
