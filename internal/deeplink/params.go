package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// ReservedIDKey is the query key carrying the product id. A custom
// parameter with this key never overrides the product id.
const ReservedIDKey = "id"

type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Params is an ordered set of custom query parameters. Order of first
// insertion determines the order in generated query strings.
type Params []Param

// Set returns p with key set to value. An existing key keeps its position.
func (p Params) Set(key, value string) Params {
	for i := range p {
		if p[i].Key == key {
			out := append(Params(nil), p...)
			out[i].Value = value
			return out
		}
	}
	return append(append(Params(nil), p...), Param{Key: key, Value: value})
}

// ParseParams decodes a raw query string keeping the order keys first
// appear in. Repeated keys keep the last value.
func ParseParams(rawQuery string) (Params, error) {
	var out Params
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: query key %q: %v", ErrInvalidInput, k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: query value for %q: %v", ErrInvalidInput, key, err)
		}
		if key == "" {
			continue
		}
		out = out.Set(key, val)
	}
	return out, nil
}

// Without returns p minus the given keys.
func (p Params) Without(keys ...string) Params {
	var out Params
	for _, kv := range p {
		drop := false
		for _, k := range keys {
			if kv.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, kv)
		}
	}
	return out
}

// Encode renders p in order as application/x-www-form-urlencoded.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// productQuery is the query shared by every link of a bundle: the product
// id first, then custom params in order, minus any "id" override.
func productQuery(productID string, custom Params) string {
	q := Params{{Key: ReservedIDKey, Value: productID}}
	for _, kv := range custom.Without(ReservedIDKey) {
		q = q.Set(kv.Key, kv.Value)
	}
	return q.Encode()
}
