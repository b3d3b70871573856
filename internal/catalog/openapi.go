package catalog

import "github.com/JaimeStill/specimen/pkg/openapi"

var categories = []any{
	string(Mineral), string(Gem), string(Rock), string(Fossil), string(Unknown),
}

// Schemas returns the component schemas referenced by catalog operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Category": {
			Type:        "string",
			Description: "Specimen category",
			Enum:        categories,
		},
		"CatalogItem": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"label":            {Type: "string", Description: "Classifier label", Example: "granite"},
				"category":         openapi.SchemaRef("Category"),
				"description":      {Type: "string"},
				"hardness":         {Type: "string", Description: "Mohs hardness", Example: "6-7"},
				"luster":           {Type: "string"},
				"rarity":           {Type: "string"},
				"interestingFacts": {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
			Required: []string{"label", "category"},
		},
	}
}

var listOp = &openapi.Operation{
	Summary: "List reference entries",
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSONSchema("Entries in label order", openapi.ArrayOf("CatalogItem")),
	},
}

var findOp = &openapi.Operation{
	Summary:    "Find a reference entry",
	Parameters: []*openapi.Parameter{openapi.PathParam("label", "Exact, case-sensitive label")},
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Reference entry", "CatalogItem"),
		404: openapi.ResponseRef("NotFound"),
	},
}
