package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/auth"
)

var errMalformedBody = errors.New("malformed request body")

// decodeJSON reads a single JSON document of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// maxPage bounds ?page well above any realistic ledger size.
const maxPage = 1 << 20

// pageParam returns the 1-based ?page value, or 0 when absent.
func pageParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("page"))
	if v == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(v)
	if err != nil || page < 1 || page > maxPage {
		return 0, fmt.Errorf("invalid page %q", v)
	}
	return page, nil
}

// userID returns the authenticated user, answering 401 when there is none.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
	}
	return id, ok
}
