package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ladder-console/internal/config"
	"ladder-console/internal/domain"

	"github.com/valyala/fasthttp"
)

const (
	playersPath       = "/api/players"
	charactersPath    = "/api/characters"
	matchesPath       = "/api/matches"
	recentMatchesPath = "/api/matches/recent"
	filterMatchesPath = "/api/matches/filter"
	loginPath         = "/api/auth/login"
)

// TokenSource supplies the bearer token for authenticated calls.
// ok is false when no valid session exists.
type TokenSource interface {
	Token() (token string, ok bool)
}

type LadderClient struct {
	baseURL string
	tokens  TokenSource
	client  *fasthttp.Client
}

func NewLadderClient(cfg *config.Config) *LadderClient {
	return &LadderClient{
		baseURL: strings.TrimRight(cfg.LadderAPIURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// SetTokenSource binds the session that authenticated calls draw their
// bearer token from. It must be called before the client is shared.
func (c *LadderClient) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

type createPlayerRequest struct {
	Name string `json:"name"`
	Main string `json:"main,omitempty"`
	Skin *int   `json:"skin,omitempty"`
}

type createMatchRequest struct {
	PlayerAID string `json:"playerAId"`
	PlayerBID string `json:"playerBId"`
	WinnerID  string `json:"winnerId"`
}

type filterMatchesResponse struct {
	Matches []domain.Match `json:"matches"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *LadderClient) GetPlayers(ctx context.Context) ([]domain.Player, error) {
	out, err := doRequest[[]domain.Player](ctx, c, request{op: "fetch players", method: fasthttp.MethodGet, path: playersPath})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *LadderClient) CreatePlayer(ctx context.Context, p domain.NewPlayer) (*domain.Player, error) {
	return doRequest[domain.Player](ctx, c, request{
		op:     "create player",
		method: fasthttp.MethodPost,
		path:   playersPath,
		body:   createPlayerRequest{Name: p.Name, Main: p.Main, Skin: p.Skin},
		auth:   true,
	})
}

func (c *LadderClient) GetCharacters(ctx context.Context) ([]domain.Character, error) {
	out, err := doRequest[[]domain.Character](ctx, c, request{op: "fetch characters", method: fasthttp.MethodGet, path: charactersPath})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CreateMatch records winnerID beating loserID.
func (c *LadderClient) CreateMatch(ctx context.Context, winnerID, loserID string) (*domain.Match, error) {
	return doRequest[domain.Match](ctx, c, request{
		op:     "record match",
		method: fasthttp.MethodPost,
		path:   matchesPath,
		body:   createMatchRequest{PlayerAID: winnerID, PlayerBID: loserID, WinnerID: winnerID},
		auth:   true,
	})
}

func (c *LadderClient) GetRecentMatches(ctx context.Context) ([]domain.Match, error) {
	out, err := doRequest[[]domain.Match](ctx, c, request{op: "fetch recent matches", method: fasthttp.MethodGet, path: recentMatchesPath})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *LadderClient) FilterMatches(ctx context.Context, query url.Values) ([]domain.Match, error) {
	out, err := doRequest[filterMatchesResponse](ctx, c, request{op: "filter matches", method: fasthttp.MethodGet, path: filterMatchesPath, query: query})
	if err != nil {
		return nil, err
	}
	return out.Matches, nil
}

func (c *LadderClient) DeleteMatch(ctx context.Context, id string) error {
	_, err := doRequest[json.RawMessage](ctx, c, request{
		op:     "annul match",
		method: fasthttp.MethodDelete,
		path:   matchesPath + "/" + url.PathEscape(id),
		auth:   true,
	})
	return err
}

func (c *LadderClient) Login(ctx context.Context, creds domain.Credentials) (*LoginResponse, error) {
	return doRequest[LoginResponse](ctx, c, request{op: "login", method: fasthttp.MethodPost, path: loginPath, body: creds})
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

func (c *LadderClient) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func doRequest[T any](ctx context.Context, client *LadderClient, r request) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(client.url(r.path, r.query))
	req.Header.SetMethod(r.method)
	req.Header.Set("Accept", "application/json")

	if r.auth {
		token, ok := "", false
		if client.tokens != nil {
			token, ok = client.tokens.Token()
		}
		if !ok || token == "" {
			return nil, &domain.AuthError{Message: "you must be logged in to " + r.op}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.SetContentType("application/json")
	}

	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", r.op, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if err := ctx.Err(); err != nil {
		return nil, &domain.TransportError{Op: r.op, Err: err}
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.client.DoDeadline(req, resp, deadline)
	} else {
		err = client.client.Do(req, resp)
	}
	if err != nil {
		return nil, &domain.TransportError{Op: r.op, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &domain.TransportError{Op: r.op, Status: status, Message: serverMessage(resp.Body())}
	}

	var result T
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, &domain.TransportError{Op: r.op, Status: status, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return &result, nil
}

func serverMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
