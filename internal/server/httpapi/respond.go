package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/server/services"
)

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, f *services.Failure) {
	writeJSON(w, f.Status, failureBody{Success: false, Error: f.Message, Code: string(f.Code)})
}

func forwardCookies(w http.ResponseWriter, cookies []string) {
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
}
