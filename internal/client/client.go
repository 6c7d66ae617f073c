// Package client is an HTTP client for the taskboard API, shaped after
// oapi-codegen output so it can be swapped for a generated one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/simonjohansson/taskboard/internal/model"
)

type CardRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

type CommentRequest struct {
	Message *string `json:"message,omitempty"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestEditorFn func(ctx context.Context, req *http.Request) error

type ClientOption func(*Client) error

type Client struct {
	// Server is the base URL, always ending in a slash.
	Server         string
	Client         HttpRequestDoer
	RequestEditors []RequestEditorFn
}

func NewClient(server string, opts ...ClientOption) (*Client, error) {
	client := Client{Server: server}
	for _, o := range opts {
		if err := o(&client); err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(client.Server, "/") {
		client.Server += "/"
	}
	if client.Client == nil {
		client.Client = &http.Client{}
	}
	return &client, nil
}

func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(c *Client) error {
		c.Client = doer
		return nil
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) error {
		c.RequestEditors = append(c.RequestEditors, fn)
		return nil
	}
}

// WithBearerToken authenticates every request. An empty token is a no-op so
// read-only commands work without credentials.
func WithBearerToken(token string) ClientOption {
	return WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	})
}

func (c *Client) GetHealth(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := newRequest(c.Server, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) ListCards(ctx context.Context, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := newRequest(c.Server, http.MethodGet, "/cards", nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) GetCard(ctx context.Context, id int64, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCardRequest(c.Server, http.MethodGet, id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) CreateCard(ctx context.Context, body CardRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := newRequest(c.Server, http.MethodPost, "/cards", body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

// UpdateCard sends a PATCH so absent fields stay unchanged.
func (c *Client) UpdateCard(ctx context.Context, id int64, body CardRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCardRequest(c.Server, http.MethodPatch, id, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) DeleteCard(ctx context.Context, id int64, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCardRequest(c.Server, http.MethodDelete, id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) CreateComment(ctx context.Context, cardID int64, body CommentRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	pathCardID, err := runtime.StyleParamWithLocation("simple", false, "cardId", runtime.ParamLocationPath, cardID)
	if err != nil {
		return nil, err
	}
	req, err := newRequest(c.Server, http.MethodPost, fmt.Sprintf("/cards/%s/comments", pathCardID), body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) UpdateComment(ctx context.Context, cardID, id int64, body CommentRequest, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCommentRequest(c.Server, http.MethodPatch, cardID, id, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) DeleteComment(ctx context.Context, cardID, id int64, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCommentRequest(c.Server, http.MethodDelete, cardID, id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func NewCardRequest(server, method string, id int64, body any) (*http.Request, error) {
	pathID, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return nil, err
	}
	return newRequest(server, method, fmt.Sprintf("/cards/%s", pathID), body)
}

func NewCommentRequest(server, method string, cardID, id int64, body any) (*http.Request, error) {
	pathCardID, err := runtime.StyleParamWithLocation("simple", false, "cardId", runtime.ParamLocationPath, cardID)
	if err != nil {
		return nil, err
	}
	pathID, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return nil, err
	}
	return newRequest(server, method, fmt.Sprintf("/cards/%s/comments/%s", pathCardID, pathID), body)
}

func newRequest(server, method, operationPath string, body any) (*http.Request, error) {
	serverURL, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	if operationPath[0] == '/' {
		operationPath = "." + operationPath
	}
	queryURL, err := serverURL.Parse(operationPath)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, queryURL.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, additional []RequestEditorFn) (*http.Response, error) {
	req = req.WithContext(ctx)
	for _, r := range c.RequestEditors {
		if err := r(ctx, req); err != nil {
			return nil, err
		}
	}
	for _, r := range additional {
		if err := r(ctx, req); err != nil {
			return nil, err
		}
	}
	return c.Client.Do(req)
}

// ClientWithResponses decodes response bodies into typed fields.
type ClientWithResponses struct {
	ClientInterface *Client
}

func NewClientWithResponses(server string, opts ...ClientOption) (*ClientWithResponses, error) {
	client, err := NewClient(server, opts...)
	if err != nil {
		return nil, err
	}
	return &ClientWithResponses{ClientInterface: client}, nil
}

type CardResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *model.CardView
	JSONError    *ErrorBody
}

func (r CardResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type ListCardsResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *[]model.CardView
	JSONError    *ErrorBody
}

func (r ListCardsResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type CommentResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *model.CommentView
	JSON201      *model.CommentView
	JSONError    *ErrorBody
}

func (r CommentResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type MessageResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *model.Message
	JSONError    *ErrorBody
}

func (r MessageResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

func (c *ClientWithResponses) ListCardsWithResponse(ctx context.Context, reqEditors ...RequestEditorFn) (*ListCardsResponse, error) {
	rsp, err := c.ClientInterface.ListCards(ctx, reqEditors...)
	if err != nil {
		return nil, err
	}
	out := &ListCardsResponse{HTTPResponse: rsp}
	out.Body, out.JSONError, err = readResponse(rsp)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode == http.StatusOK {
		var dest []model.CardView
		if err := json.Unmarshal(out.Body, &dest); err != nil {
			return nil, err
		}
		out.JSON200 = &dest
	}
	return out, nil
}

func (c *ClientWithResponses) GetCardWithResponse(ctx context.Context, id int64, reqEditors ...RequestEditorFn) (*CardResponse, error) {
	rsp, err := c.ClientInterface.GetCard(ctx, id, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseCardResponse(rsp)
}

func (c *ClientWithResponses) CreateCardWithResponse(ctx context.Context, body CardRequest, reqEditors ...RequestEditorFn) (*CardResponse, error) {
	rsp, err := c.ClientInterface.CreateCard(ctx, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseCardResponse(rsp)
}

func (c *ClientWithResponses) UpdateCardWithResponse(ctx context.Context, id int64, body CardRequest, reqEditors ...RequestEditorFn) (*CardResponse, error) {
	rsp, err := c.ClientInterface.UpdateCard(ctx, id, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseCardResponse(rsp)
}

func (c *ClientWithResponses) DeleteCardWithResponse(ctx context.Context, id int64, reqEditors ...RequestEditorFn) (*MessageResponse, error) {
	rsp, err := c.ClientInterface.DeleteCard(ctx, id, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseMessageResponse(rsp)
}

func (c *ClientWithResponses) CreateCommentWithResponse(ctx context.Context, cardID int64, body CommentRequest, reqEditors ...RequestEditorFn) (*CommentResponse, error) {
	rsp, err := c.ClientInterface.CreateComment(ctx, cardID, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseCommentResponse(rsp)
}

func (c *ClientWithResponses) UpdateCommentWithResponse(ctx context.Context, cardID, id int64, body CommentRequest, reqEditors ...RequestEditorFn) (*CommentResponse, error) {
	rsp, err := c.ClientInterface.UpdateComment(ctx, cardID, id, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseCommentResponse(rsp)
}

func (c *ClientWithResponses) DeleteCommentWithResponse(ctx context.Context, cardID, id int64, reqEditors ...RequestEditorFn) (*MessageResponse, error) {
	rsp, err := c.ClientInterface.DeleteComment(ctx, cardID, id, reqEditors...)
	if err != nil {
		return nil, err
	}
	return parseMessageResponse(rsp)
}

func parseCardResponse(rsp *http.Response) (*CardResponse, error) {
	out := &CardResponse{HTTPResponse: rsp}
	var err error
	out.Body, out.JSONError, err = readResponse(rsp)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode == http.StatusOK {
		var dest model.CardView
		if err := json.Unmarshal(out.Body, &dest); err != nil {
			return nil, err
		}
		out.JSON200 = &dest
	}
	return out, nil
}

func parseCommentResponse(rsp *http.Response) (*CommentResponse, error) {
	out := &CommentResponse{HTTPResponse: rsp}
	var err error
	out.Body, out.JSONError, err = readResponse(rsp)
	if err != nil {
		return nil, err
	}
	switch rsp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var dest model.CommentView
		if err := json.Unmarshal(out.Body, &dest); err != nil {
			return nil, err
		}
		if rsp.StatusCode == http.StatusCreated {
			out.JSON201 = &dest
		} else {
			out.JSON200 = &dest
		}
	}
	return out, nil
}

func parseMessageResponse(rsp *http.Response) (*MessageResponse, error) {
	out := &MessageResponse{HTTPResponse: rsp}
	var err error
	out.Body, out.JSONError, err = readResponse(rsp)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode == http.StatusOK {
		var dest model.Message
		if err := json.Unmarshal(out.Body, &dest); err != nil {
			return nil, err
		}
		out.JSON200 = &dest
	}
	return out, nil
}

func readResponse(rsp *http.Response) ([]byte, *ErrorBody, error) {
	body, err := io.ReadAll(rsp.Body)
	defer func() { _ = rsp.Body.Close() }()
	if err != nil {
		return nil, nil, err
	}
	if rsp.StatusCode >= 300 {
		var e ErrorBody
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return body, &e, nil
		}
	}
	return body, nil, nil
}
