package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Handler results may implement any of these to shape the envelope.
type (
	statusCoder interface{ StatusCode() int }
	messenger   interface{ Message() string }
	metaCarrier interface{ Meta() map[string]any }
)

// writeError maps goerror values to their status. Anything else is a 500
// with a generic message so internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg()}

	var verr validator.V10ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error = verr.Values()
	case len(gerr.Fields()) > 0:
		resp.Error = gerr.Fields()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

// writeSuccess wraps resp in the success envelope. A nil result is 204.
func writeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(statusCoder); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	env := successResponse{Message: "request completed successfully", Data: resp}
	if m, ok := resp.(messenger); ok {
		env.Message = m.Message()
	}
	if m, ok := resp.(metaCarrier); ok {
		env.Meta = m.Meta()
	}

	writeJSON(w, env, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}
