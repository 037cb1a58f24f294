// Package trytonclient implements bos.Service over the JSON-RPC endpoint of
// a Tryton server.
//
// Example usage:
//
//	client := trytonclient.New("http://localhost:8000", "demo",
//		trytonclient.WithRateLimit(20, 5))
//	if err := client.Login(ctx, "admin", "admin"); err != nil {
//		return err
//	}
//	ids, err := client.Search(ctx, "party.party", bos.Where("name", bos.Eq, "Saber"))
package trytonclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/nomis52/demoseed/bos"
)

// Error classes the server raises when a user-level precondition fails,
// e.g. posting an invoice with no lines or confirming a cancelled sale.
var preconditionErrors = []string{"UserError", "UserWarning", "AccessError"}

// Client is a JSON-RPC client bound to one database.
// Calls are serialized; the client is safe to share but never issues
// concurrent requests.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.Mutex
	nextID   int64
	login    string
	session  string
	context  map[string]any
	wizState map[bos.ID]string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Each call is logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "trytonclient")
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to set a timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithRateLimit throttles calls to qps requests per second with the given
// burst. A non-positive qps disables throttling.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		if qps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// New creates a client for database on the server at baseURL.
func New(baseURL, database string, opts ...Option) *Client {
	c := &Client{
		url:      strings.TrimRight(baseURL, "/") + "/" + database + "/",
		http:     &http.Client{Timeout: 5 * time.Minute},
		logger:   slog.Default().With("component", "trytonclient"),
		context:  map[string]any{},
		wizState: make(map[bos.ID]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login opens a session and loads the user preferences as call context.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res []any
	if err := c.call(ctx, "common.db.login", []any{username, map[string]any{"password": password}, ""}, &res); err != nil {
		return fmt.Errorf("logging in as %s: %w", username, err)
	}
	if len(res) != 2 {
		return &bos.RemoteError{Method: "common.db.login", Message: fmt.Sprintf("unexpected login result %v", res)}
	}
	userID := toID(res[0])
	session, _ := res[1].(string)
	if userID == 0 || session == "" {
		return &bos.RemoteError{Method: "common.db.login", Message: "invalid credentials"}
	}

	c.mu.Lock()
	c.login = username
	c.session = base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d:%s", username, userID, session)))
	c.mu.Unlock()

	c.logger.Info("logged in", "user", username, "user_id", userID)
	_, err := c.Preferences(ctx)
	return err
}

// Preferences implements bos.Service. The returned preferences replace the
// context sent with subsequent calls.
func (c *Client) Preferences(ctx context.Context) (bos.Record, error) {
	var prefs map[string]any
	if err := c.call(ctx, "model.res.user.get_preferences", []any{true, c.callContext()}, &prefs); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.context = prefs
	c.mu.Unlock()
	return bos.Record(prefs).Clone(), nil
}

// Search implements bos.Service.
func (c *Client) Search(ctx context.Context, model string, domain bos.Domain) ([]bos.ID, error) {
	var res []any
	err := c.call(ctx, "model."+model+".search", []any{encodeDomain(domain), 0, nil, nil, c.callContext()}, &res)
	if err != nil {
		return nil, err
	}
	return toIDs(res), nil
}

// Read implements bos.Service.
func (c *Client) Read(ctx context.Context, model string, ids []bos.ID, fields ...string) ([]bos.Record, error) {
	var names any
	if len(fields) > 0 {
		names = fields
	}
	var res []any
	if err := c.call(ctx, "model."+model+".read", []any{ids, names, c.callContext()}, &res); err != nil {
		return nil, err
	}
	records := make([]bos.Record, 0, len(res))
	for _, r := range res {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, &bos.RemoteError{Method: "model." + model + ".read", Message: fmt.Sprintf("unexpected record %T", r)}
		}
		records = append(records, bos.Record(m))
	}
	return records, nil
}

// Create implements bos.Service.
func (c *Client) Create(ctx context.Context, model string, values ...bos.Record) ([]bos.ID, error) {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = encodeValue(v)
	}
	var res []any
	if err := c.call(ctx, "model."+model+".create", []any{vals, c.callContext()}, &res); err != nil {
		return nil, err
	}
	return toIDs(res), nil
}

// Write implements bos.Service.
func (c *Client) Write(ctx context.Context, model string, ids []bos.ID, values bos.Record) error {
	return c.call(ctx, "model."+model+".write", []any{ids, encodeValue(values), c.callContext()}, nil)
}

// Call implements bos.Service.
func (c *Client) Call(ctx context.Context, model, method string, ids []bos.ID) (any, error) {
	var res any
	if err := c.call(ctx, "model."+model+"."+method, []any{ids, c.callContext()}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// WizardCreate implements bos.Service.
func (c *Client) WizardCreate(ctx context.Context, name string) (bos.ID, error) {
	var res []any
	if err := c.call(ctx, "wizard."+name+".create", []any{}, &res); err != nil {
		return 0, err
	}
	if len(res) < 2 {
		return 0, &bos.RemoteError{Method: "wizard." + name + ".create", Message: fmt.Sprintf("unexpected result %v", res)}
	}
	id := toID(res[0])
	start, _ := res[1].(string)
	c.mu.Lock()
	c.wizState[id] = start
	c.mu.Unlock()
	return id, nil
}

// WizardExecute implements bos.Service. The form is submitted under the
// name of the state the session is currently displaying.
func (c *Client) WizardExecute(ctx context.Context, name string, id bos.ID, state string, form bos.Record, targets []bos.ID) (string, bos.Record, error) {
	c.mu.Lock()
	current := c.wizState[id]
	c.mu.Unlock()

	data := map[string]any{}
	if current != "" && len(form) > 0 {
		data[current] = encodeValue(form)
	}
	wctx := c.callContext()
	if len(targets) > 0 {
		wctx["active_id"] = targets[0]
		wctx["active_ids"] = targets
	}

	var res map[string]any
	if err := c.call(ctx, "wizard."+name+".execute", []any{id, data, state, wctx}, &res); err != nil {
		return "", nil, err
	}

	next, proposed := bos.EndState, bos.Record{}
	if view, ok := res["view"].(map[string]any); ok {
		if s, ok := view["state"].(string); ok {
			next = s
		}
		if defaults, ok := view["defaults"].(map[string]any); ok {
			proposed = bos.Record(defaults)
		}
	}
	c.mu.Lock()
	c.wizState[id] = next
	c.mu.Unlock()
	return next, proposed, nil
}

// WizardDelete implements bos.Service.
func (c *Client) WizardDelete(ctx context.Context, name string, id bos.ID) error {
	c.mu.Lock()
	delete(c.wizState, id)
	c.mu.Unlock()
	return c.call(ctx, "wizard."+name+".delete", []any{id, c.callContext()}, nil)
}

func (c *Client) callContext() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.context))
	for k, v := range c.context {
		out[k] = v
	}
	return out
}

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// call issues one JSON-RPC request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &bos.RemoteError{Method: method, Message: "rate limiter", Err: err}
		}
	}

	c.mu.Lock()
	c.nextID++
	req := request{ID: c.nextID, Method: method, Params: encodeParams(params)}
	session := c.session
	c.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return &bos.RemoteError{Method: method, Message: "encoding request", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &bos.RemoteError{Method: method, Message: "building request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if session != "" {
		httpReq.Header.Set("Authorization", "Session "+session)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &bos.RemoteError{Method: method, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &bos.RemoteError{Method: method, Message: "reading response", Err: err}
	}
	c.logger.Debug("rpc call", "method", method, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return &bos.RemoteError{Method: method, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var rpcResp response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return &bos.RemoteError{Method: method, Message: "decoding response", Err: err}
	}
	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return remoteError(method, rpcResp.Error)
	}
	if out == nil {
		return nil
	}

	var result any
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return &bos.RemoteError{Method: method, Message: "decoding result", Err: err}
	}
	return assign(method, decodeValue(result), out)
}

// remoteError converts a JSON-RPC error member. The server sends
// [exception class, args]; precondition classes map to bos.ErrTransition.
func remoteError(method string, raw json.RawMessage) error {
	var payload []any
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload) == 0 {
		return &bos.RemoteError{Method: method, Message: strings.TrimSpace(string(raw))}
	}
	class, _ := payload[0].(string)
	message := class
	if len(payload) > 1 {
		switch args := payload[1].(type) {
		case []any:
			parts := make([]string, 0, len(args))
			for _, a := range args {
				if s, ok := a.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				message = class + ": " + strings.Join(parts, " ")
			}
		case string:
			message = class + ": " + args
		}
	}
	e := &bos.RemoteError{Method: method, Message: message}
	for _, p := range preconditionErrors {
		if class == p {
			e.Err = bos.ErrTransition
		}
	}
	return e
}

func assign(method string, v any, out any) error {
	switch o := out.(type) {
	case *any:
		*o = v
	case *[]any:
		if v == nil {
			*o = nil
			return nil
		}
		list, ok := v.([]any)
		if !ok {
			return &bos.RemoteError{Method: method, Message: fmt.Sprintf("expected list result, got %T", v)}
		}
		*o = list
	case *map[string]any:
		if v == nil {
			*o = nil
			return nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return &bos.RemoteError{Method: method, Message: fmt.Sprintf("expected object result, got %T", v)}
		}
		*o = m
	default:
		return fmt.Errorf("unsupported result target %T", out)
	}
	return nil
}

var _ bos.Service = (*Client)(nil)
