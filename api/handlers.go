package api

import (
	"net/http"
	"strconv"

	"searchgate/gateway"
)

// SearchHandler serves GET /api/search?q=...&max_results=N as plain text.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxResults := 0
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "max_results must be an integer", http.StatusBadRequest)
			return
		}
		maxResults = n
	}

	text, code := s.ops.SearchText(r.Context(), r.URL.Query().Get("q"), maxResults)
	writeText(w, text, code)
}

// FetchHandler serves GET /api/fetch?url=... as plain text.
func (s *Server) FetchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, code := s.ops.FetchText(r.Context(), r.URL.Query().Get("url"))
	writeText(w, text, code)
}

func writeText(w http.ResponseWriter, text string, code gateway.Code) {
	status := http.StatusOK
	if code != "" {
		status = statusFor(code)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func statusFor(code gateway.Code) int {
	switch code {
	case gateway.CodeInvalidInput:
		return http.StatusBadRequest
	case gateway.CodeRateLimited:
		return http.StatusTooManyRequests
	case gateway.CodeUnsupportedContentType:
		return http.StatusUnsupportedMediaType
	case gateway.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
