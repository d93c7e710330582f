package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"codeagent/internal/domain"
)

const maxBodyBytes = 1 << 20

// readBody returns the bounded request body, defaulting an empty body
// to an empty JSON object so optional-argument endpoints accept it.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "unreadable request body")
		return nil, false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return body, true
}

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	answer, err := s.ask.AskK(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusBadGateway, "ask_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// toolEndpoint adapts a registered tool into a POST handler. The
// request body is the tool's argument object; tool failures map onto
// HTTP statuses by error code.
func (s *Server) toolEndpoint(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		res, err := s.registry.Execute(r.Context(), name, body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "tool_failed", err.Error())
			return
		}
		if res.Error != nil {
			writeError(w, toolErrorStatus(res.Error.Code), res.Error.Code, res.Error.Message)
			return
		}
		writeJSON(w, http.StatusOK, res.Data)
	}
}

func toolErrorStatus(code string) int {
	switch code {
	case domain.ToolErrInvalidArgs, domain.ToolErrInvalidRegex:
		return http.StatusBadRequest
	case domain.ToolErrPathEscape, domain.ToolErrDenied:
		return http.StatusForbidden
	case domain.ToolErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type initRequest struct {
	Path string `json:"path"`
}

type initResponse struct {
	Files     int      `json:"files"`
	Skipped   int      `json:"skipped"`
	Fragments int      `json:"fragments"`
	Embedded  int      `json:"embedded"`
	Pruned    int      `json:"pruned"`
	Errors    []string `json:"errors"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req initRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := s.index(r.Context(), req.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index_failed", err.Error())
		return
	}

	resp := initResponse{
		Files:     result.FilesScanned,
		Skipped:   result.FilesSkipped,
		Fragments: result.Fragments,
		Embedded:  result.Embedded,
		Pruned:    result.Pruned,
		Errors:    result.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
