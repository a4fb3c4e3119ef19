// Package fipe looks up vehicle catalog and reference prices from the public
// FIPE API, caching responses on disk.
package fipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// VehicleType is the FIPE vehicle category path segment.
type VehicleType string

const (
	Cars   VehicleType = "carros"
	Motos  VehicleType = "motos"
	Trucks VehicleType = "caminhoes"
)

// ParseVehicleType accepts the FIPE path segment.
func ParseVehicleType(s string) (VehicleType, error) {
	switch VehicleType(s) {
	case Cars, Motos, Trucks:
		return VehicleType(s), nil
	}
	return "", fmt.Errorf("%w: vehicle type %q", ErrInvalidArgument, s)
}

// Code is a FIPE identifier. The API returns some codes as numbers and some as
// strings; both decode to the same string form.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("fipe code: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Reference is one catalog item: a brand, a model or a model year.
type Reference struct {
	Code Code   `json:"codigo"`
	Name string `json:"nome"`
}

// Models is the models listing of a brand, with every year any model exists in.
type Models struct {
	Models []Reference `json:"modelos"`
	Years  []Reference `json:"anos"`
}

// Price is the reference price of one brand/model/year.
type Price struct {
	VehicleType    int    `json:"TipoVeiculo"`
	Value          string `json:"Valor"`
	Brand          string `json:"Marca"`
	Model          string `json:"Modelo"`
	ModelYear      int    `json:"AnoModelo"`
	Fuel           string `json:"Combustivel"`
	FipeCode       string `json:"CodigoFipe"`
	ReferenceMonth string `json:"MesReferencia"`
	FuelAbbrev     string `json:"SiglaCombustivel"`
}

// Cents parses Value ("R$ 10.000,00") into cents.
func (p Price) Cents() (int64, error) {
	digits := make([]byte, 0, len(p.Value))
	for i := 0; i < len(p.Value); i++ {
		if c := p.Value[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("no digits in price %q", p.Value)
	}
	return strconv.ParseInt(string(digits), 10, 64)
}
