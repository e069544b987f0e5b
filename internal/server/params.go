package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"solidarity/pkg/types"
)

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, types.InvalidRequest("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// decodeQuery fills dst from the query string and validates it.
func decodeQuery(dst any, values url.Values) error {
	if err := decoder.Decode(dst, values); err != nil {
		return types.InvalidRequest("invalid query string: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}
