package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// unixTime decodes unix seconds sent as a JSON number or a numeric string.
// Fractional values are rounded.
type unixTime struct {
	time.Time
}

func (t *unixTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := parseUnix(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseUnix(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty time")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return time.Time{}, fmt.Errorf("invalid unix time %q", raw)
	}
	return time.Unix(int64(math.Round(value)), 0), nil
}

// ptr returns nil for an absent value.
func (t *unixTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	out := t.Time
	return &out
}

func (t *unixTime) value() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func stringParam(r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	return value, value != ""
}

// dateQuery reads ?date= as unix seconds or YYYY-MM-DD. Invalid or absent
// values fall back to the current week.
func dateQuery(query url.Values, loc *time.Location) *time.Time {
	raw := strings.TrimSpace(query.Get("date"))
	if raw == "" {
		return nil
	}
	if t, err := parseUnix(raw); err == nil {
		return &t
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return &t
	}
	return nil
}

// userQuery reads repeated or comma separated ?user= values.
func userQuery(query url.Values) []string {
	var users []string
	for _, value := range query["user"] {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				users = append(users, id)
			}
		}
	}
	return users
}

func optionalQuery(query url.Values, key string) *string {
	value := strings.TrimSpace(query.Get(key))
	if value == "" {
		return nil
	}
	return &value
}
