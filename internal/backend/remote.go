package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/http/handlers"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Remote implements the journal contracts against a `journal serve` API.
type Remote struct {
	// Server is the origin, e.g. "https://journal.example.com".
	Server string
	// BasePath is the API prefix, e.g. "/api/v1".
	BasePath string
	Client   *http.Client
	Tokens   *TokenStore
	Log      zerolog.Logger

	// OnConfirmToken receives the confirmation token the server returns
	// for a registration that awaits confirmation.
	OnConfirmToken func(email, token string)

	mu          sync.Mutex
	token       string
	user        *domain.User
	reflections bool

	// last list response per user, replayed on 304
	etag    string
	etagFor string
	cached  []repo.EntryRecord
}

var (
	_ services.IdentityGateway     = (*Remote)(nil)
	_ services.EntryStore          = (*Remote)(nil)
	_ services.ReflectionGenerator = (*Remote)(nil)
)

// NewRemote returns a client for the API at server.
func NewRemote(server, basePath string, timeout time.Duration, tokens *TokenStore, log zerolog.Logger) *Remote {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if basePath == "/" {
		basePath = ""
	}
	return &Remote{
		Server:   strings.TrimRight(server, "/"),
		BasePath: strings.TrimRight(basePath, "/"),
		Client:   &http.Client{Timeout: timeout},
		Tokens:   tokens,
		Log:      log,
	}
}

// Probe checks the server is reachable and records whether it can
// generate reflections.
func (r *Remote) Probe(ctx context.Context) error {
	var h handlers.HealthResponse
	if _, err := r.do(ctx, http.MethodGet, r.Server+"/health", "", nil, &h, nil); err != nil {
		return err
	}
	r.mu.Lock()
	r.reflections = h.Reflections
	r.mu.Unlock()
	return nil
}

// Register creates an account. Active registrations are signed in.
func (r *Remote) Register(ctx context.Context, email, password, name string) (services.Registration, error) {
	var resp handlers.RegisterResponse
	_, err := r.do(ctx, http.MethodPost, r.api("/auth/register"), "",
		handlers.RegisterRequest{Email: email, Password: password, Name: name}, &resp, nil)
	if err != nil {
		switch statusOf(err) {
		case http.StatusConflict:
			return services.Registration{}, services.ErrDuplicateAccount
		case http.StatusBadRequest:
			return services.Registration{}, fmt.Errorf("%w: %v", services.ErrValidation, err)
		default:
			return services.Registration{}, fmt.Errorf("%w: %v", services.ErrGateway, err)
		}
	}

	u := fromUserResponse(resp.User)
	if resp.Status == services.RegistrationPendingConfirmation.String() {
		if r.OnConfirmToken != nil && resp.ConfirmationToken != "" {
			r.OnConfirmToken(u.Email, resp.ConfirmationToken)
		}
		return services.Registration{User: u, Status: services.RegistrationPendingConfirmation}, nil
	}
	r.setSession(resp.SessionToken, &u)
	return services.Registration{User: u, Status: services.RegistrationActive}, nil
}

// Login signs in and remembers the bearer token.
func (r *Remote) Login(ctx context.Context, email, password string) (domain.User, error) {
	var resp handlers.LoginResponse
	_, err := r.do(ctx, http.MethodPost, r.api("/auth/login"), "",
		handlers.LoginRequest{Email: email, Password: password}, &resp, nil)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusBadRequest:
			return domain.User{}, services.ErrInvalidCredentials
		case http.StatusForbidden:
			return domain.User{}, services.ErrConfirmationPending
		default:
			return domain.User{}, fmt.Errorf("%w: %v", services.ErrGateway, err)
		}
	}
	u := fromUserResponse(resp.User)
	r.setSession(resp.SessionToken, &u)
	return u, nil
}

// Confirm redeems a confirmation token.
func (r *Remote) Confirm(ctx context.Context, token string) error {
	_, err := r.do(ctx, http.MethodPost, r.api("/auth/confirm"), "", handlers.ConfirmRequest{Token: token}, nil, nil)
	if statusOf(err) == http.StatusBadRequest {
		return fmt.Errorf("%w: unknown confirmation token", services.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrGateway, err)
	}
	return nil
}

// Logout revokes the session on the server. A session the server no
// longer knows is not an error. The local token, user and list cache are
// forgotten only once the server has answered, so a failed logout leaves
// the session usable.
func (r *Remote) Logout(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()

	if token == "" {
		stored, err := r.Tokens.Load()
		if err != nil {
			r.Log.Warn().Err(err).Msg("read stored session token")
		}
		token = stored
	}
	if token != "" {
		_, err := r.do(ctx, http.MethodPost, r.api("/auth/logout"), token, nil, nil, nil)
		if err != nil && statusOf(err) != http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", services.ErrGateway, err)
		}
	}

	r.mu.Lock()
	r.token, r.user = "", nil
	r.etag, r.etagFor, r.cached = "", "", nil
	r.mu.Unlock()
	if err := r.Tokens.Clear(); err != nil {
		r.Log.Warn().Err(err).Msg("clear stored session token")
	}
	return nil
}

// CurrentSession resumes the stored session, if the server still accepts it.
func (r *Remote) CurrentSession(ctx context.Context) (*domain.User, error) {
	r.mu.Lock()
	token, cached := r.token, r.user
	r.mu.Unlock()
	if cached != nil {
		u := *cached
		return &u, nil
	}
	if token == "" {
		stored, err := r.Tokens.Load()
		if err != nil {
			return nil, fmt.Errorf("%w: read session token: %v", services.ErrGateway, err)
		}
		token = stored
	}
	if token == "" {
		return nil, nil
	}

	var resp handlers.SessionResponse
	_, err := r.do(ctx, http.MethodGet, r.api("/auth/session"), token, nil, &resp, nil)
	if statusOf(err) == http.StatusUnauthorized {
		_ = r.Tokens.Clear()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrGateway, err)
	}
	u := fromUserResponse(resp.User)
	r.setSession(token, &u)
	return &u, nil
}

// ListEntries fetches the signed-in user's rows, revalidating the last
// response with its ETag.
func (r *Remote) ListEntries(ctx context.Context, userID string) ([]repo.EntryRecord, error) {
	token, err := r.bearer()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	etag := ""
	if r.etagFor == userID {
		etag = r.etag
	}
	r.mu.Unlock()

	var hdr http.Header
	if etag != "" {
		hdr = http.Header{"If-None-Match": []string{etag}}
	}
	var resp handlers.EntriesResponse
	res, err := r.do(ctx, http.MethodGet, r.api("/entries"), token, nil, &resp, hdr)
	if err != nil {
		return nil, r.authFailure(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if res.StatusCode == http.StatusNotModified {
		return append([]repo.EntryRecord(nil), r.cached...), nil
	}
	r.etag, r.etagFor = res.Header.Get("ETag"), userID
	r.cached = append([]repo.EntryRecord(nil), resp.Entries...)
	return resp.Entries, nil
}

// UpsertEntry stores rec and returns the server's copy.
func (r *Remote) UpsertEntry(ctx context.Context, rec repo.EntryRecord) (repo.EntryRecord, error) {
	token, err := r.bearer()
	if err != nil {
		return repo.EntryRecord{}, err
	}
	var stored repo.EntryRecord
	if _, err := r.do(ctx, http.MethodPut, r.api("/entries/"+url.PathEscape(rec.ID)), token, rec, &stored, nil); err != nil {
		return repo.EntryRecord{}, r.authFailure(err)
	}
	return stored, nil
}

// DeleteEntry removes one of the signed-in user's rows.
func (r *Remote) DeleteEntry(ctx context.Context, id string) error {
	token, err := r.bearer()
	if err != nil {
		return err
	}
	if _, err := r.do(ctx, http.MethodDelete, r.api("/entries/"+url.PathEscape(id)), token, nil, nil, nil); err != nil {
		return r.authFailure(err)
	}
	return nil
}

// Available reports what the last Probe learned.
func (r *Remote) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reflections
}

// Generate asks the server for a reflection.
func (r *Remote) Generate(ctx context.Context, req services.ReflectionRequest) (string, error) {
	token, err := r.bearer()
	if err != nil {
		return "", err
	}
	var resp handlers.ReflectionResponse
	_, err = r.do(ctx, http.MethodPost, r.api("/reflections"), token,
		handlers.ReflectionRequest{Title: req.Title, Content: req.Content, Mood: string(req.Mood)}, &resp, nil)
	switch {
	case err == nil:
		return resp.Reflection, nil
	case statusOf(err) == http.StatusServiceUnavailable:
		return "", services.ErrUnavailable
	default:
		return "", fmt.Errorf("%w: %v", services.ErrGeneration, err)
	}
}

func (r *Remote) api(path string) string { return r.Server + r.BasePath + path }

func (r *Remote) bearer() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" {
		return "", services.ErrNotAuthenticated
	}
	return r.token, nil
}

// authFailure turns a rejected bearer token into ErrNotAuthenticated.
func (r *Remote) authFailure(err error) error {
	if statusOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", services.ErrNotAuthenticated, err)
	}
	return err
}

func (r *Remote) setSession(token string, u *domain.User) {
	r.mu.Lock()
	r.token, r.user = token, u
	r.mu.Unlock()
	if err := r.Tokens.Save(token); err != nil {
		r.Log.Warn().Err(err).Msg("persist session token")
	}
}

// do sends one JSON request. Non-2xx responses other than 304 come back
// as *StatusError; out is decoded on 2xx responses with a body.
func (r *Remote) do(ctx context.Context, method, target, token string, in, out any, hdr http.Header) (*http.Response, error) {
	tr := otel.Tracer("backend/Remote")
	ctx, span := tr.Start(ctx, method+" "+strings.TrimPrefix(target, r.Server))
	defer span.End()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := r.Client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer res.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return res, err
	}
	if res.StatusCode == http.StatusNotModified {
		return res, nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		se := &StatusError{Status: res.StatusCode}
		var env handlers.ErrorResponse
		if json.Unmarshal(raw, &env) == nil {
			se.Code, se.Message = env.Code, env.Message
		}
		span.SetStatus(codes.Error, se.Error())
		r.Log.Debug().Str("method", method).Str("url", target).Int("status", res.StatusCode).
			Str("request_id", res.Header.Get("X-Request-ID")).Msg("api error")
		return res, se
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return res, fmt.Errorf("decode %s response: %w", target, err)
		}
	}
	return res, nil
}

func fromUserResponse(u handlers.UserResponse) domain.User {
	return domain.User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
