package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"githubhunt-gateway/internal/config"
	"githubhunt-gateway/internal/github"
)

const defaultSystemPrompt = `You are GitHubHunt, an assistant that helps users discover GitHub repositories.
Use the available tools to search repositories, inspect what a user has starred,
and read repository READMEs before answering. Ground every recommendation in
tool results, cite repositories as owner/name with their star counts, and answer
in concise Markdown. If the tools return nothing useful, say so instead of guessing.`

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// DeepSeekFactory builds per-request runners backed by DeepSeek's
// OpenAI-compatible chat API. The underlying client is immutable and safe to
// share; all per-request state lives on the runner.
type DeepSeekFactory struct {
	client   openai.Client
	model    string
	prompt   string
	maxSteps int
	tools    *github.Client
}

// NewDeepSeekFactory validates the agent configuration and constructs the
// factory.
func NewDeepSeekFactory(cfg config.AgentConfig) (*DeepSeekFactory, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("agent api key must not be empty")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("agent base url must not be empty")
	}

	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultSystemPrompt
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(newHTTPClient()),
		// Some DeepSeek deployments sit behind Cloudflare and reject SDK
		// user agents.
		option.WithHeader("User-Agent", "curl/7.74.0"),
	)

	return &DeepSeekFactory{
		client:   client,
		model:    cfg.Model,
		prompt:   prompt,
		maxSteps: cfg.MaxSteps,
		tools:    github.New(cfg.GitHubToken, ""),
	}, nil
}

// NewRunner returns a fresh runner serving exactly one request.
func (f *DeepSeekFactory) NewRunner() Runner {
	return &deepSeekRunner{
		client:   f.client,
		model:    f.model,
		prompt:   f.prompt,
		maxSteps: f.maxSteps,
		tools:    f.tools,
	}
}

type deepSeekRunner struct {
	client   openai.Client
	model    string
	prompt   string
	maxSteps int
	tools    *github.Client
}

// Run starts the agent and returns a lazy fragment stream. Cancelling ctx
// (or closing the stream) abandons all in-flight model and tool work.
func (r *deepSeekRunner) Run(ctx context.Context, query string) (Stream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query must not be empty")
	}

	p := newPipe(ctx)
	go r.generate(p, query)
	return p, nil
}

// generate drives the model, streaming text deltas to the pipe and looping on
// tool calls until the model produces a final answer or the step budget is
// exhausted.
func (r *deepSeekRunner) generate(p *pipe, query string) {
	defer p.finish()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(r.prompt),
		openai.UserMessage(query),
	}

	for step := 0; step < r.maxSteps; step++ {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(r.model),
			Messages: messages,
			Tools:    toolDefinitions(),
		}

		stream := r.client.Chat.Completions.NewStreaming(p.ctx, params)

		var acc openai.ChatCompletionAccumulator
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !p.send(delta) {
					_ = stream.Close()
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			p.fail(fmt.Errorf("model stream: %w", err))
			return
		}
		if len(acc.Choices) == 0 {
			p.fail(errors.New("model returned no choices"))
			return
		}

		final := acc.Choices[0].Message
		if len(final.ToolCalls) == 0 {
			return
		}

		messages = append(messages, final.ToParam())
		for _, call := range final.ToolCalls {
			result, err := r.dispatchTool(p.ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				slog.Warn("agent tool failed", "tool", call.Function.Name, "error", err)
				result = fmt.Sprintf("Tool %s failed: %v", call.Function.Name, err)
			}
			messages = append(messages, openai.ToolMessage(result, call.ID))
		}
	}

	p.fail(fmt.Errorf("agent exceeded %d reasoning steps without a final answer", r.maxSteps))
}

func (r *deepSeekRunner) dispatchTool(ctx context.Context, name, rawArgs string) (string, error) {
	switch name {
	case "search_repositories":
		var args struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("parse %s arguments: %w", name, err)
		}
		return r.tools.SearchRepositories(ctx, args.Query, args.Limit)

	case "get_user_starred":
		var args struct {
			Username string `json:"username"`
			Limit    int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("parse %s arguments: %w", name, err)
		}
		return r.tools.UserStarred(ctx, args.Username, args.Limit)

	case "get_repo_readme":
		var args struct {
			Owner string `json:"owner"`
			Repo  string `json:"repo"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("parse %s arguments: %w", name, err)
		}
		return r.tools.RepoReadme(ctx, args.Owner, args.Repo)

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func toolDefinitions() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        "search_repositories",
			Description: openai.String("Search GitHub repositories by keyword, sorted by stars."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search keywords, e.g. 'terminal file manager rust'",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 5)",
					},
				},
				"required": []string{"query"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        "get_user_starred",
			Description: openai.String("List repositories a GitHub user has starred."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"username": map[string]any{
						"type":        "string",
						"description": "GitHub login of the user",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 10)",
					},
				},
				"required": []string{"username"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        "get_repo_readme",
			Description: openai.String("Fetch the README of a repository to inspect what it does."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"owner": map[string]any{
						"type":        "string",
						"description": "Repository owner",
					},
					"repo": map[string]any{
						"type":        "string",
						"description": "Repository name",
					},
				},
				"required": []string{"owner", "repo"},
			},
		}),
	}
}

// newHTTPClient builds the transport used for model calls. No overall client
// timeout is set: responses are long-lived streams bounded by the request
// context instead.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}
