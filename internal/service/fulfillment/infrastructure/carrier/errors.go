package carrier

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError 承运商返回的非成功响应
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "carrier api error (status %d): %s", e.StatusCode, e.Message)
	if len(e.FieldErrors) > 0 {
		keys := make([]string, 0, len(e.FieldErrors))
		for k := range e.FieldErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, strings.Join(e.FieldErrors[k], ", "))
		}
	}
	return b.String()
}

// Fields 字段级错误，saga 用它填充 domain.Error.Fields
func (e *APIError) Fields() map[string][]string { return e.FieldErrors }

type errorBody struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code"`
	Errors     json.RawMessage `json:"errors"`
}

// parseAPIError 响应体不是 JSON 时用原文作为 message
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
	} else {
		apiErr.Message = eb.Message
		apiErr.FieldErrors = parseFieldErrors(eb.Errors)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// errors 字段可能是 {"f": ["a"]} 也可能是 {"f": "a"}
func parseFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var many map[string][]string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many
	}
	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		out := make(map[string][]string, len(single))
		for k, v := range single {
			out[k] = []string{v}
		}
		return out
	}
	return nil
}
