package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"llm-bridge/internal/models"
	"llm-bridge/internal/request"
	"llm-bridge/internal/response"
	"llm-bridge/internal/tool"
)

// GenerateRequest is the vendor-neutral body of /v1/render and /v1/generate.
type GenerateRequest struct {
	Model       string             `json:"model,omitempty"`
	Vendor      string             `json:"vendor,omitempty"`
	Messages    []models.Message   `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   *uint32            `json:"max_tokens,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Tools       []tool.Declaration `json:"tools,omitempty"`
}

// GenerateResponse flattens a vendor reply through the unified accessors.
type GenerateResponse struct {
	ID         string                  `json:"id"`
	Kind       string                  `json:"kind"`
	Model      string                  `json:"model"`
	Role       string                  `json:"role"`
	Content    string                  `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      models.Usage            `json:"usage"`
	ToolCalls  []response.ToolResponse `json:"tool_calls,omitempty"`
	Raw        *response.Message       `json:"raw"`
}

func newGenerateResponse(msg *response.Message) GenerateResponse {
	out := GenerateResponse{
		ID:         msg.ID(),
		Kind:       msg.Kind().String(),
		Model:      msg.Model(),
		Role:       msg.Role(),
		Content:    msg.FirstMessage(),
		StopReason: msg.StopReason(),
		Usage:      msg.Usage(),
		Raw:        msg,
	}
	if calls, ok := msg.Tools(); ok {
		out.ToolCalls = calls
	}
	return out
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   s.router.Models(),
	})
}

// handleRender returns the vendor document without sending it. A vendor with
// no configured provider can still be rendered.
func (s *Server) handleRender(c echo.Context) error {
	var req GenerateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	b, err := s.builder(req, true)
	if err != nil {
		return toHTTPError(err)
	}

	body, err := b.Render()
	if err != nil {
		return toHTTPError(err)
	}
	c.Response().Header().Set("X-LLM-Vendor", string(b.Vendor()))
	return c.JSONBlob(http.StatusOK, body)
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	b, err := s.builder(req, false)
	if err != nil {
		return toHTTPError(err)
	}

	msg, err := b.Send(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newGenerateResponse(msg))
}

func (s *Server) builder(req GenerateRequest, renderOnly bool) (*request.Builder, error) {
	var vendor models.Vendor
	if req.Vendor != "" {
		v, err := models.ParseVendor(req.Vendor)
		if err != nil {
			return nil, invalidRequest(err)
		}
		vendor = v
	}

	b, err := s.router.Request(req.Model, vendor)
	if err != nil {
		if !renderOnly || vendor == "" {
			return nil, err
		}
		b = request.ForVendor(vendor)
		if req.Model != "" {
			b.Model(req.Model)
		}
	}

	for _, m := range req.Messages {
		b.AddMessage(m)
	}
	if req.System != "" {
		b.SystemPrompt(req.System)
	}
	if req.MaxTokens != nil {
		b.MaxTokens(*req.MaxTokens)
	}
	if req.Temperature != nil {
		b.Temperature(*req.Temperature)
	}
	for i, decl := range req.Tools {
		t, err := decl.Build()
		if err != nil {
			return nil, invalidRequest(fmt.Errorf("tools[%d]: %w", i, err))
		}
		b.AddTool(t)
	}
	return b, nil
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}
