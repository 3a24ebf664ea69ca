package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/labstack/echo/v4"
)

// StrictJSONSerializer replaces Echo's default JSON serializer.
//
// Responses are written with json.Marshal, without the trailing newline
// json.Encoder appends.  Request bodies must hold exactly one JSON value.
// For struct targets, object keys bind only on an exact json tag match
// and a repeated key is rejected; keys that match no tag are ignored.
type StrictJSONSerializer struct{}

func NewStrictJSONSerializer() *StrictJSONSerializer { return &StrictJSONSerializer{} }

func (StrictJSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	var (
		b   []byte
		err error
	)
	if indent != "" {
		b, err = json.MarshalIndent(i, "", indent)
	} else {
		b, err = json.Marshal(i)
	}
	if err != nil {
		return err
	}
	_, err = c.Response().Write(b)
	return err
}

func (StrictJSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error()).SetInternal(err)
	}
	raw, err := singleValue(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	if names := jsonFieldNames(i); names != nil && bytes.HasPrefix(raw, []byte("{")) {
		if raw, err = exactKeys(raw, names); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
		}
	}
	if err := json.Unmarshal(raw, i); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v", ute.Type, ute.Value, ute.Field, ute.Offset)).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

// singleValue returns the one JSON value in body, trimmed.  Anything but
// whitespace after it is an error.
func singleValue(body []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty body")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value at offset %d", dec.InputOffset())
	}
	return raw, nil
}

// exactKeys rebuilds the object in raw keeping only keys listed in names.
func exactKeys(raw json.RawMessage, names map[string]bool) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // '{'
		return nil, err
	}
	seen := make(map[string]bool)
	kept := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate field `%s`", key)
		}
		seen[key] = true
		if names[key] {
			kept[key] = v
		}
	}
	return json.Marshal(kept)
}

// jsonFieldNames lists the json names of the struct i points to, or nil
// when i is not a pointer to a struct.
func jsonFieldNames(i interface{}) map[string]bool {
	t := reflect.TypeOf(i)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil
	}
	t = t.Elem()
	names := make(map[string]bool, t.NumField())
	for idx := 0; idx < t.NumField(); idx++ {
		f := t.Field(idx)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		names[name] = true
	}
	return names
}
