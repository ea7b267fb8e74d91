// Package remote provides the HTTP client layer for talking to corrald
// agent APIs on other cluster nodes.
//
// The AgentClient wraps a Resty HTTP client with corral-specific behavior:
// timeout configuration, connection retries, JSON envelope handling, and
// structured request logging. It is used for remote command execution
// (fan-out across nodes) and for the error-stream delivery protocol that
// routes stderr text back to the node a command originated from.
//
// All methods return detailed, wrapped errors so callers can surface clear
// connectivity diagnostics to operators.
package remote

import (
	"fmt"
	"sync"
	"time"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/version"
	"github.com/go-resty/resty/v2"
)

// APIResponse is the standard JSON envelope returned by corrald agent
// endpoints: a status string plus an operation-specific data payload.
type APIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ExecRequest asks a remote agent to run a command through its registry.
// Origin fields identify the node the invocation started on so the remote
// side can route error output back.
type ExecRequest struct {
	Argv       []string `json:"argv"`
	OriginNode string   `json:"originNode,omitempty"`
	OriginAddr string   `json:"originAddr,omitempty"`
}

// ExecResult carries the outcome of a remote command execution: the exit
// code the command produced and the stdout text it rendered.
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
}

// StderrRequest is a remote error-stream write: text destined for the
// receiving node's stderr.
type StderrRequest struct {
	Text string `json:"text"`
}

// NodeInfo describes one cluster member as reported by an agent's nodes
// endpoint.
type NodeInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// restyLogger routes Resty's internal logs through structured logging.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) { logging.Error(format, v...) }
func (restyLogger) Warnf(format string, v ...interface{})  { logging.Warn(format, v...) }
func (restyLogger) Debugf(format string, v ...interface{}) { logging.Debug(format, v...) }

// AgentClient is an HTTP client bound to a single corrald agent API.
type AgentClient struct {
	client  *resty.Client
	baseURL string
}

// NewAgentClient creates a client for the agent API at addr (host:port).
// Timeout is in seconds; retries apply only to connection failures, never
// to HTTP error statuses.
func NewAgentClient(addr string, timeout int) *AgentClient {
	client := resty.New()

	baseURL := fmt.Sprintf("http://%s/api/v1", addr)

	client.SetLogger(restyLogger{})

	client.
		SetTimeout(time.Duration(timeout)*time.Second).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", fmt.Sprintf("corralctl/%s", version.CorralctlVersion))

	client.
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only retry on connection errors, not HTTP errors
			return err != nil
		})

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logging.Debug("Making agent API request: %s %s", req.Method, req.URL)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logging.Debug("Agent API response: %d %s (took %v)",
			resp.StatusCode(), resp.Status(), resp.Time())
		return nil
	})

	return &AgentClient{
		client:  client,
		baseURL: baseURL,
	}
}

// Health checks whether the remote agent is reachable and serving.
func (api *AgentClient) Health() error {
	resp, err := api.client.R().Get("/health")
	if err != nil {
		return fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("agent health check failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	return nil
}

// Identity returns the node name the agent reports for itself. Issuing
// processes that never join the gossip layer use this to learn the identity
// they should present as their origin.
func (api *AgentClient) Identity() (string, error) {
	var payload APIResponse

	resp, err := api.client.R().
		SetResult(&payload).
		Get("/health")

	if err != nil {
		return "", fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("agent identity lookup failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	data, ok := payload.Data.(map[string]any)
	if !ok {
		return "", fmt.Errorf("malformed health payload from agent at %s", api.baseURL)
	}
	name, _ := data["node"].(string)
	if name == "" {
		return "", fmt.Errorf("agent at %s reported no node name", api.baseURL)
	}

	return name, nil
}

// Exec runs argv on the remote agent, propagating the origin identity so
// error output routes back to the originating node. Returns the remote
// exit code and captured stdout.
func (api *AgentClient) Exec(argv []string, origin command.Origin) (*ExecResult, error) {
	var result ExecResult

	resp, err := api.client.R().
		SetBody(ExecRequest{
			Argv:       argv,
			OriginNode: origin.Node,
			OriginAddr: origin.Addr,
		}).
		SetResult(&result).
		Post("/exec")

	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("remote execution failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	return &result, nil
}

// WriteStderr delivers text to the remote agent's stderr stream.
func (api *AgentClient) WriteStderr(text string) error {
	resp, err := api.client.R().
		SetBody(StderrRequest{Text: text}).
		Post("/streams/stderr")

	if err != nil {
		return fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("stderr delivery failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	return nil
}

// GetNodes fetches cluster membership from the agent. Lets processes that
// never join the gossip layer act as a node finder.
func (api *AgentClient) GetNodes() ([]command.Node, error) {
	var response APIResponse

	resp, err := api.client.R().
		SetResult(&response).
		Get("/nodes")

	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("node listing failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	var nodes []command.Node
	if members, ok := response.Data.([]any); ok {
		for _, memberData := range members {
			if member, ok := memberData.(map[string]any); ok {
				name, _ := member["name"].(string)
				address, _ := member["address"].(string)
				nodes = append(nodes, command.Node{Name: name, Addr: address})
			}
		}
	}

	return nodes, nil
}

// GetConfig fetches a config value from the remote agent's store.
func (api *AgentClient) GetConfig(key string) (string, error) {
	var response APIResponse

	resp, err := api.client.R().
		SetResult(&response).
		Get("/config/" + key)

	if err != nil {
		return "", fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("config read failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	value, _ := response.Data.(string)
	return value, nil
}

// SetConfig writes a config value through the remote agent's store. The
// agent enforces its whitelist; a rejected key surfaces as an HTTP error.
func (api *AgentClient) SetConfig(key, value string) error {
	resp, err := api.client.R().
		SetBody(map[string]string{"value": value}).
		Put("/config/" + key)

	if err != nil {
		return fmt.Errorf("failed to connect to agent at %s: %w", api.baseURL, err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("config write failed with status %d: %s",
			resp.StatusCode(), resp.String())
	}

	return nil
}

// StderrDeliverer routes error-stream text to origin nodes over their
// agent APIs. Clients are cached per address so repeated deliveries to the
// same origin reuse a connection pool.
type StderrDeliverer struct {
	mu      sync.Mutex
	clients map[string]*AgentClient
	timeout int // seconds
}

// NewStderrDeliverer creates a deliverer with the given per-request
// timeout in seconds.
func NewStderrDeliverer(timeout int) *StderrDeliverer {
	return &StderrDeliverer{
		clients: make(map[string]*AgentClient),
		timeout: timeout,
	}
}

// DeliverStderr writes text to the stderr stream of the node identified by
// origin. Implements the command framework's error-stream deliverer.
func (d *StderrDeliverer) DeliverStderr(origin command.Origin, text string) error {
	if origin.Addr == "" {
		return fmt.Errorf("origin %q has no agent address", origin.Node)
	}

	return d.clientFor(origin.Addr).WriteStderr(text)
}

func (d *StderrDeliverer) clientFor(addr string) *AgentClient {
	d.mu.Lock()
	defer d.mu.Unlock()

	if client, ok := d.clients[addr]; ok {
		return client
	}

	client := NewAgentClient(addr, d.timeout)
	d.clients[addr] = client
	return client
}
