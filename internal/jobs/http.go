package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/registry"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	// defaultMaxBodySize — тело ответа попадает в записи попыток и события.
	defaultMaxBodySize = 1 << 20
)

// ErrHTTPRequest — ошибка выполнения HTTP-запроса.
var ErrHTTPRequest = errors.New("http request failed")

// HTTPTarget — target "http".
//
// Операции:
//   - get(url, [headers]) — GET-запрос
//   - post(url, body, [headers]) — POST-запрос, body сериализуется в JSON
//
// Результат:
//   - status_code (int): HTTP-код ответа
//   - headers (map[string]string): заголовки ответа
//   - body (any): тело ответа (JSON или строка)
//   - truncated (bool): тело длиннее MaxBodySize и обрезано
//
// Ответ 5xx и сетевые ошибки повторяются, 4xx — нет.
type HTTPTarget struct {
	Client  *http.Client
	Timeout time.Duration

	// MaxBodySize — сколько байт тела ответа читать (default: 1 MiB).
	MaxBodySize int64
}

// Operations реализует набор операций target'а.
func (h *HTTPTarget) Operations() registry.Operations {
	return registry.Operations{
		"get":  h.get,
		"post": h.post,
	}
}

func (h *HTTPTarget) get(ctx context.Context, args []any) (any, error) {
	url, err := stringArg(args, 0, "url")
	if err != nil {
		return nil, err
	}
	return h.do(ctx, http.MethodGet, url, nil, headersArg(args, 1))
}

func (h *HTTPTarget) post(ctx context.Context, args []any) (any, error) {
	url, err := stringArg(args, 0, "url")
	if err != nil {
		return nil, err
	}

	var body any
	if len(args) > 1 {
		body = args[1]
	}
	return h.do(ctx, http.MethodPost, url, body, headersArg(args, 2))
}

func (h *HTTPTarget) do(ctx context.Context, method, url string, body any, headers map[string]string) (any, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, domain.Permanent(fmt.Errorf("%w: marshal body: %v", ErrHTTPRequest, err))
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err))
	}

	for key, val := range headers {
		req.Header.Set(key, val)
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	limit := h.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBodySize
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}
	truncated := int64(len(respBody)) > limit
	if truncated {
		respBody = respBody[:limit]
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%w: HTTP %d: %s", ErrHTTPRequest, resp.StatusCode, truncate(string(respBody), 200))
		if resp.StatusCode < 500 {
			return nil, domain.Permanent(err)
		}
		return nil, err
	}

	outputs := buildOutputs(resp, respBody)
	if truncated {
		outputs["truncated"] = true
	}
	return outputs, nil
}

// buildOutputs формирует результат из HTTP-ответа.
func buildOutputs(resp *http.Response, body []byte) map[string]any {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	// JSON, иначе строка
	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        parsedBody,
	}
}

// headersArg извлекает заголовки из аргумента-объекта.
func headersArg(args []any, i int) map[string]string {
	if i >= len(args) {
		return nil
	}
	h, ok := args[i].(map[string]any)
	if !ok {
		return nil
	}

	headers := make(map[string]string, len(h))
	for key, val := range h {
		if s, ok := val.(string); ok {
			headers[key] = s
		}
	}
	return headers
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
