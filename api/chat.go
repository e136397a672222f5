package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// ChatCategory selects the assistant of the API answering a question.
type ChatCategory string

const (
	ChatLoss      ChatCategory = "loss"      // explains losses
	ChatProfit    ChatCategory = "profit"    // explains profits
	ChatBenchmark ChatCategory = "benchmark" // compares to the benchmark
)

// ChatCategories lists the valid categories.
var ChatCategories = []ChatCategory{ChatLoss, ChatProfit, ChatBenchmark}

// ParseChatCategory validates a category name, in any case.
func ParseChatCategory(s string) (ChatCategory, error) {
	c := ChatCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ChatCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown chat category %q, want loss, profit or benchmark", s)
}

// ErrEmptyAnswer is returned when the chat endpoint answers nothing.
var ErrEmptyAnswer = errors.New("empty answer")

// Chat asks a question to the assistant of the API and returns its answer,
// in markdown.
//
// The chat endpoint answers a bare {"answer": "..."} object. The usual
// envelope, with the answer in its data, is accepted too.
func (c *Client) Chat(ctx context.Context, category ChatCategory, question string) (string, error) {
	op := "chat about " + string(category)
	path := "/api/chat/" + url.PathEscape(string(category))
	code, body, err := c.send(ctx, op, http.MethodGet, path, url.Values{"question": {question}}, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Answer  string `json:"answer"`
		Data    struct {
			Answer string `json:"answer"`
		} `json:"data"`
	}
	decodeErr := json.Unmarshal(body, &resp)
	if code < 200 || code >= 300 {
		return "", &Error{Op: op, StatusCode: code, Status: resp.Status, Message: resp.Message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("cannot %s: invalid response body: %w", op, decodeErr)
	}
	if resp.Status != "" && resp.Status != "success" {
		return "", &Error{Op: op, StatusCode: code, Status: resp.Status, Message: resp.Message}
	}
	answer := resp.Answer
	if answer == "" {
		answer = resp.Data.Answer
	}
	if answer == "" {
		return "", fmt.Errorf("cannot %s: %w", op, ErrEmptyAnswer)
	}
	return answer, nil
}
