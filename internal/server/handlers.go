package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"githubhunt-gateway/internal/agent"
	"githubhunt-gateway/internal/translator"
)

const (
	serviceName    = "githubhunt-api"
	serviceVersion = "1.0.0"

	agentModelID  = "githubhunt-agent"
	agentOwner    = "githubhunt"
	upstreamOwner = "deepseek"

	emptyResponseFallback = "No response generated from agent."
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// handleModels advertises the virtual agent model alongside the upstream
// model it delegates to.
func (s *Server) handleModels(c echo.Context) error {
	now := time.Now().Unix()
	list := translator.ModelList{
		Object: "list",
		Data: []translator.ModelInfo{
			translator.NewModelInfo(agentModelID, now, agentOwner),
			translator.NewModelInfo(s.cfg.Agent.Model, now, upstreamOwner),
		},
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleChatCompletions(c echo.Context) error {
	if err := s.gate.Check(c.Request().Header.Get("Authorization")); err != nil {
		return authError(err)
	}

	var req translator.ChatCompletionRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	query, err := translator.ExtractQuery(req.Messages)
	if err != nil {
		return queryError(err)
	}

	model := req.Model
	if model == "" {
		model = agentModelID
	}

	stream, err := s.agents.NewRunner().Run(c.Request().Context(), query)
	if err != nil {
		return agentError(err)
	}

	if req.Stream {
		return s.writeCompletionStream(c, model, stream)
	}

	defer stream.Close()

	text, err := collectResponse(stream)
	if err != nil {
		return agentError(err)
	}

	resp := translator.NewCompletion(translator.NewResponseID(), time.Now().Unix(), model, text)
	return c.JSON(http.StatusOK, resp)
}

// collectResponse drains the agent stream into a single answer.
func collectResponse(stream agent.Stream) (string, error) {
	var b strings.Builder
	for stream.Next() {
		b.WriteString(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return "", err
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return emptyResponseFallback, nil
	}
	return text, nil
}
