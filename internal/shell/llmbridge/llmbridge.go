// Package llmbridge implements the LLM collaborator contract: an
// external HTTP job queue (POST /v1/jobs, poll GET /v1/jobs/{id},
// best-effort POST /v1/jobs/{id}/cancel), backing the Q surface
// primitive. It uses github.com/worldline-go/klient as the HTTP client
// and github.com/oklog/ulid/v2 to mint trace IDs.
package llmbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/worldline-go/klient"

	"github.com/rakunlabs/symshell/internal/shell/config"
	"github.com/rakunlabs/symshell/internal/shell/core"
)

// jobStates the remote job-queue contract reports.
const (
	stateQueued    = "queued"
	stateRunning   = "running"
	stateOK        = "ok"
	stateFail      = "fail"
	stateTimeout   = "timeout"
	stateCancelled = "cancelled"
)

// Bridge registers the Q primitive and talks to the job-queue contract.
type Bridge struct {
	engine *core.Engine
	client *klient.Client
	cfg    config.LLM
}

// New builds a Bridge bound to cfg.BaseURL and registers sys.q.chat on
// engine. cfg.BaseURL must be non-empty (callers get it from
// config.LoadLLM, which already enforces that).
func New(e *core.Engine, cfg config.LLM) (*Bridge, error) {
	client, err := klient.New(
		klient.WithBaseURL(cfg.BaseURL),
		klient.WithHeaderSet(http.Header{"Content-Type": []string{"application/json"}}),
	)
	if err != nil {
		return nil, fmt.Errorf("llmbridge: build client: %w", err)
	}

	b := &Bridge{engine: e, client: client, cfg: cfg}
	e.RegisterPrimitive("sys.q.chat", b.chat,
		"Send a prompt (a $/&/# target or literal text) to the LLM job queue",
		"sys.q.chat (<$sub:key>|<&name[:idx]>|<#path>|<text...>)")
	return b, nil
}

type jobRequest struct {
	Op        string  `json:"op"`
	Args      jobArgs `json:"args"`
	TimeoutMs int     `json:"timeout_ms"`
	TraceID   string  `json:"trace_id,omitempty"`
}

type jobArgs struct {
	Messages []message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jobCreated struct {
	ID string `json:"id"`
}

type jobStatus struct {
	State  string `json:"state"`
	Result *struct {
		Text string `json:"text"`
	} `json:"result"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *Bridge) chat(args []string) (string, error) {
	if len(args) == 0 {
		return "", core.Shape("Q expects a $/&/# target or literal text")
	}

	prompt, err := b.resolvePrompt(args)
	if err != nil {
		return "", err
	}

	timeout := time.Duration(b.cfg.TimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	traceID := strings.ToLower(ulid.Make().String())

	id, err := b.submit(ctx, prompt, traceID)
	if err != nil {
		return "", core.RunnerStep("%s", err)
	}

	result, err := b.poll(ctx, id)
	if err != nil {
		b.cancel(id)
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.RunnerStep("Q timeout")
		}
		return "", core.RunnerStep("%s", err)
	}
	return result, nil
}

// resolvePrompt implements the reentrant sys.cat case: a single $/&/#
// target resolves through DispatchInternal rather than the dispatch
// gate, since Q's handler already holds it.
func (b *Bridge) resolvePrompt(args []string) (string, error) {
	if len(args) == 1 {
		head := args[0]
		if strings.HasPrefix(head, "$") || strings.HasPrefix(head, "&") || strings.HasPrefix(head, "#") {
			out, err := b.engine.DispatchInternal([]string{"sys.cat", head})
			if err != nil {
				return "", err
			}
			return out, nil
		}
	}
	return strings.Join(args, " "), nil
}

func (b *Bridge) submit(ctx context.Context, prompt, traceID string) (string, error) {
	reqBody := jobRequest{
		Op: "llm.chat",
		Args: jobArgs{
			Messages: []message{{Role: "user", Content: prompt}},
			Model:    b.cfg.Model,
		},
		TimeoutMs: b.cfg.TimeoutMs,
		TraceID:   traceID,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/v1/jobs", bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var created jobCreated
	if err := b.client.Do(req, func(r *http.Response) error {
		body, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			return readErr
		}
		return json.Unmarshal(body, &created)
	}); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("llmbridge: job queue returned no id")
	}
	return created.ID, nil
}

func (b *Bridge) poll(ctx context.Context, id string) (string, error) {
	interval := time.Duration(b.cfg.PollIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := b.fetchStatus(ctx, id)
		if err != nil {
			return "", err
		}
		switch status.State {
		case stateOK:
			if status.Result == nil {
				return "", fmt.Errorf("llmbridge: ok job missing result")
			}
			return status.Result.Text, nil
		case stateFail, stateTimeout, stateCancelled:
			if status.Error != nil {
				return "", fmt.Errorf("%s: %s", status.Error.Code, status.Error.Message)
			}
			return "", fmt.Errorf("llmbridge: job ended in state %s", status.State)
		case stateQueued, stateRunning:
			// keep polling
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bridge) fetchStatus(ctx context.Context, id string) (jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/v1/jobs/"+id, nil)
	if err != nil {
		return jobStatus{}, err
	}
	var status jobStatus
	if err := b.client.Do(req, func(r *http.Response) error {
		body, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			return readErr
		}
		return json.Unmarshal(body, &status)
	}); err != nil {
		return jobStatus{}, err
	}
	return status, nil
}

// cancel issues a best-effort POST /v1/jobs/{id}/cancel on any terminal
// non-ok outcome, poll timeout, or mid-flight exception.
func (b *Bridge) cancel(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/v1/jobs/"+id+"/cancel", nil)
	if err != nil {
		return
	}
	_ = b.client.Do(req, func(r *http.Response) error { return nil })
}
