package authlog

import (
	"net"
	"net/http"
	"strings"
)

// RequestInfo is the request metadata attached to auth records. Empty
// fields are omitted from the record.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	Method    string
	Path      string
}

// FromRequest extracts RequestInfo from r. The client address is the first
// X-Forwarded-For hop, then X-Real-IP, then the host part of RemoteAddr.
func FromRequest(r *http.Request) RequestInfo {
	if r == nil {
		return RequestInfo{}
	}
	info := RequestInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Method:    r.Method,
	}
	if r.URL != nil {
		info.Path = r.URL.Path
	}
	return info
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (ri RequestInfo) appendTo(fields map[string]any) {
	if ri.IPAddress != "" {
		fields["ip_address"] = ri.IPAddress
	}
	if ri.UserAgent != "" {
		fields["user_agent"] = ri.UserAgent
	}
	if ri.Method != "" {
		fields["method"] = ri.Method
	}
	if ri.Path != "" {
		fields["path"] = ri.Path
	}
}
