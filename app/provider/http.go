package provider

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultHTTPTimeout = 15 * time.Second

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")).
		SetTimeout(timeout)
}

func setIfNotEmpty(params map[string]string, key, value string) {
	if value != "" {
		params[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func stringMapToPayload(params map[string]string) map[string]interface{} {
	payload := make(map[string]interface{}, len(params))
	for key, value := range params {
		payload[key] = value
	}
	return payload
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
