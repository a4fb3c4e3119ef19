package fipe

import "dealer-workers/internal/common/validation"

const referenceItem = `{
	"type": "object",
	"required": ["codigo", "nome"],
	"properties": {
		"codigo": {"type": ["string", "integer"]},
		"nome": {"type": "string"}
	}
}`

var (
	referenceListSchema = validation.MustCompileSchema(`{
		"type": "array",
		"items": ` + referenceItem + `
	}`)

	modelsSchema = validation.MustCompileSchema(`{
		"type": "object",
		"required": ["modelos", "anos"],
		"properties": {
			"modelos": {"type": "array", "items": ` + referenceItem + `},
			"anos": {"type": "array", "items": ` + referenceItem + `}
		}
	}`)

	priceSchema = validation.MustCompileSchema(`{
		"type": "object",
		"required": ["Valor", "Marca", "Modelo", "AnoModelo", "CodigoFipe"],
		"properties": {
			"Valor": {"type": "string"},
			"Marca": {"type": "string"},
			"Modelo": {"type": "string"},
			"AnoModelo": {"type": "integer"},
			"CodigoFipe": {"type": "string"}
		}
	}`)
)

func schemaFor(r Resource) *validation.Schema {
	switch r {
	case ResourceModels:
		return modelsSchema
	case ResourcePrice:
		return priceSchema
	default:
		return referenceListSchema
	}
}
