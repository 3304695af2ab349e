package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-viper/mapstructure/v2"
)

const maxBodyBytes = 1 << 20

// decodeQuery fills dst from query parameters, keyed by json tag names.
// Strings are converted to the field types, embedded structs are flattened.
func decodeQuery(values url.Values, dst any) error {
	in := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			in[k] = v[0]
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// requestDecoder picks the payload source by verb.
func requestDecoder(w http.ResponseWriter, r *http.Request) func(dst any) error {
	if r.Method == http.MethodGet {
		return func(dst any) error { return decodeQuery(r.URL.Query(), dst) }
	}
	return func(dst any) error { return decodeBody(w, r, dst) }
}
