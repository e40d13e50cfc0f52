package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"venuebook/pkg/config"
	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/model"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// DecodeJSON reads the request body into dst. Bodies cut off by
// http.MaxBytesReader surface as PayloadTooLarge.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.PayloadTooLarge(maxErr.Limit)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("Request body is required")
		default:
			return apperrors.InvalidInput("Invalid request body")
		}
	}
	return nil
}

// QueryDate parses a YYYY-MM-DD query parameter. A missing optional value
// yields the zero Date.
func QueryDate(r *http.Request, name string, required bool) (model.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if required {
			return model.Date{}, apperrors.InvalidInput(name + " parameter is required")
		}
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return d, nil
}

// QueryStatus returns nil when the status parameter is absent.
func QueryStatus(r *http.Request) (*model.Status, error) {
	s := r.URL.Query().Get("status")
	if s == "" {
		return nil, nil
	}
	st, err := model.ParseStatus(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid status parameter: " + s)
	}
	return &st, nil
}

func QueryBool(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return b, nil
}
