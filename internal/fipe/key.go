package fipe

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"time"
)

// Resource names a FIPE lookup.
type Resource string

const (
	ResourceBrands Resource = "marcas"
	ResourceModels Resource = "modelos"
	ResourceYears  Resource = "anos"
	ResourcePrice  Resource = "preco"
)

// CacheKey identifies one cached FIPE response.
type CacheKey struct {
	Resource    Resource    `json:"r"`
	VehicleType VehicleType `json:"t"`
	Brand       Code        `json:"b,omitempty"`
	Model       Code        `json:"m,omitempty"`
	Year        Code        `json:"y,omitempty"`
}

// String encodes the key as "<resource>_<base64url(json)>". Distinct keys
// always encode to distinct strings, whatever characters the codes contain.
func (k CacheKey) String() string {
	raw, _ := json.Marshal(k)
	return string(k.Resource) + "_" + base64.RawURLEncoding.EncodeToString(raw)
}

// Path returns the upstream API path for the key.
func (k CacheKey) Path() string {
	p := "/" + url.PathEscape(string(k.VehicleType)) + "/marcas"
	if k.Resource == ResourceBrands {
		return p
	}
	p += "/" + url.PathEscape(string(k.Brand)) + "/modelos"
	if k.Resource == ResourceModels {
		return p
	}
	p += "/" + url.PathEscape(string(k.Model)) + "/anos"
	if k.Resource == ResourceYears {
		return p
	}
	return p + "/" + url.PathEscape(string(k.Year))
}

// TTLs are the freshness windows per resource class.
type TTLs struct {
	Catalog time.Duration
	Price   time.Duration
}

// DefaultTTLs keeps catalog data for ten days and prices for one.
var DefaultTTLs = TTLs{
	Catalog: 10 * 24 * time.Hour,
	Price:   24 * time.Hour,
}

func (t TTLs) For(r Resource) time.Duration {
	if r == ResourcePrice {
		return t.Price
	}
	return t.Catalog
}
