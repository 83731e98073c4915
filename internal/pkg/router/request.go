package router

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

func (r *Request) GetParamInt64(key string) (int64, error) {
	value, err := strconv.ParseInt(r.GetParam(key), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid param " + key)
	}
	return value, nil
}

func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// GetQueries returns every non-blank value of key, also splitting comma lists.
func (r *Request) GetQueries(key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for v := range strings.SplitSeq(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// GetQueryInt returns def when the query is absent.
func (r *Request) GetQueryInt(key string, def int) (int, error) {
	queryValue := r.GetQuery(key)
	if queryValue == "" {
		return def, nil
	}

	value, err := strconv.Atoi(queryValue)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return value, nil
}

// GetQueryTime parses an RFC 3339 timestamp; the zero time means absent.
func (r *Request) GetQueryTime(key string) (time.Time, error) {
	queryValue := r.GetQuery(key)
	if queryValue == "" {
		return time.Time{}, nil
	}

	value, err := time.Parse(time.RFC3339, queryValue)
	if err != nil {
		return time.Time{}, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return value, nil
}

// DecodeBody decodes a single JSON document into dst, rejecting unknown fields.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return goerror.NewInvalidFormat()
	}

	return nil
}
