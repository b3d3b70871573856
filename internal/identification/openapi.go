package identification

import "github.com/JaimeStill/specimen/pkg/openapi"

// Schemas returns the component schemas referenced by identification operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"IdentifyRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"image_uri": {
					Type:        "string",
					Description: "Path under the image root, file://, http(s):// (when enabled) or base64 data: URI of the photograph",
					Example:     "specimen.jpg",
				},
			},
			Required: []string{"image_uri"},
		},
		"Identification": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":     {Type: "string", Description: "Predicted label", Example: "granite"},
				"category": openapi.SchemaRef("Category"),
				"confidence": {
					Type:    "number",
					Minimum: openapi.Float(0),
					Maximum: openapi.Float(1),
				},
				"description":      {Type: "string"},
				"hardness":         {Type: "string"},
				"luster":           {Type: "string"},
				"rarity":           {Type: "string"},
				"interestingFacts": {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"fingerprint":      {Type: "string", Description: "Perceptual image hash", Example: "d:3c3c7e7e3c180000"},
			},
			Required: []string{"name", "category", "confidence"},
		},
		"ModelInfo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"state":       {Type: "string", Enum: []any{"uninitialized", "loading", "ready", "failed"}},
				"loaded":      {Type: "boolean"},
				"backend":     {Type: "string", Example: "dense"},
				"label_count": {Type: "integer"},
				"input_shape": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"height":   {Type: "integer"},
						"width":    {Type: "integer"},
						"channels": {Type: "integer"},
					},
				},
				"error": {Type: "string"},
			},
		},
	}
}

var identifyOp = &openapi.Operation{
	Summary:     "Identify a specimen",
	Description: "Classifies the referenced photograph and enriches the top label from the reference catalog. Nothing is saved.",
	RequestBody: openapi.RequestBodyJSON("IdentifyRequest", true),
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Identification", "Identification"),
		400: openapi.ResponseRef("BadRequest"),
		413: openapi.ResponseRef("PayloadTooLarge"),
		422: openapi.ResponseRef("UnprocessableEntity"),
		503: openapi.ResponseRef("ServiceUnavailable"),
		504: openapi.ResponseRef("GatewayTimeout"),
	},
}

var modelOp = &openapi.Operation{
	Summary: "Classifier status",
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Model status", "ModelInfo"),
	},
}

var loadModelOp = &openapi.Operation{
	Summary:     "Load the classifier",
	Description: "Loads the model and labels when the classifier is not ready. Use after a failed startup load.",
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Model status", "ModelInfo"),
		503: openapi.ResponseRef("ServiceUnavailable"),
	},
}
