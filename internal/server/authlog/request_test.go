package authlog

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/migrate-login", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("User-Agent", "curl/8")

	assert.Equal(t, RequestInfo{
		IPAddress: "10.0.0.9",
		UserAgent: "curl/8",
		Method:    "POST",
		Path:      "/auth/migrate-login",
	}, FromRequest(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", FromRequest(r).IPAddress)

	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", FromRequest(r).IPAddress)
}

func TestFromRequest_Nil(t *testing.T) {
	assert.Equal(t, RequestInfo{}, FromRequest(nil))
}

func TestRequestInfo_OmitsEmptyFields(t *testing.T) {
	fields := map[string]any{}
	RequestInfo{Method: "GET"}.appendTo(fields)
	assert.Equal(t, map[string]any{"method": "GET"}, fields)
}
