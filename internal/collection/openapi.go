package collection

import "github.com/JaimeStill/specimen/pkg/openapi"

func recordSchema(extra map[string]*openapi.Schema, required ...string) *openapi.Schema {
	props := map[string]*openapi.Schema{
		"name":             {Type: "string"},
		"category":         openapi.SchemaRef("Category"),
		"confidence":       {Type: "number", Minimum: openapi.Float(0), Maximum: openapi.Float(1)},
		"description":      {Type: "string"},
		"hardness":         {Type: "string"},
		"luster":           {Type: "string"},
		"rarity":           {Type: "string"},
		"interestingFacts": {Type: "array", Items: &openapi.Schema{Type: "string"}},
		"fingerprint":      {Type: "string"},
		"imageUri":         {Type: "string"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return &openapi.Schema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"name", "confidence"}, required...),
	}
}

// Schemas returns the component schemas referenced by collection operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"SaveRequest": recordSchema(nil),
		"Record": recordSchema(map[string]*openapi.Schema{
			"id":        {Type: "string", Description: "Time-ordered UUIDv7"},
			"timestamp": {Type: "integer", Description: "Unix milliseconds"},
		}, "id", "timestamp"),
		"Match": recordSchema(map[string]*openapi.Schema{
			"id":        {Type: "string"},
			"timestamp": {Type: "integer"},
			"distance":  {Type: "integer", Description: "Hamming distance to the query fingerprint"},
		}, "id", "distance"),
		"SearchRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":          {Type: "integer", Minimum: openapi.Float(1)},
				"page_size":     {Type: "integer", Minimum: openapi.Float(1)},
				"search":        {Type: "string", Description: "Case-insensitive match on name or description"},
				"sort":          {Type: "string", Description: "Comma-separated fields (timestamp, name, category, confidence); prefix - for descending"},
				"category":      {Type: "string"},
				"minConfidence": {Type: "number", Minimum: openapi.Float(0), Maximum: openapi.Float(1)},
			},
		},
		"RecordPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("Record"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
			Required: []string{"data", "total", "page", "page_size", "total_pages"},
		},
		"Statistics": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total":             {Type: "integer"},
				"byCategory":        {Type: "object", AdditionalProperties: &openapi.Schema{Type: "integer"}},
				"averageConfidence": {Type: "number"},
			},
			Required: []string{"total", "byCategory", "averageConfidence"},
		},
	}
}

var idParam = openapi.PathParam("id", "Record id")

var (
	listOp = &openapi.Operation{
		Summary:     "List saved records",
		Description: "Newest first. Unreadable storage yields an empty list.",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONSchema("Records", openapi.ArrayOf("Record")),
		},
	}
	saveOp = &openapi.Operation{
		Summary:     "Save an identification",
		RequestBody: openapi.RequestBodyJSON("SaveRequest", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Saved record", "Record"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("PayloadTooLarge"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
	clearOp = &openapi.Operation{
		Summary: "Remove every record",
		Responses: map[int]*openapi.Response{
			204: {Description: "Collection cleared"},
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
	statisticsOp = &openapi.Operation{
		Summary: "Collection statistics",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Statistics", "Statistics"),
		},
	}
	similarOp = &openapi.Operation{
		Summary: "Find visually similar records",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("fingerprint", "string", "Perceptual hash from an identification", true),
			openapi.QueryParam("max_distance", "integer", "Maximum Hamming distance (default 10)", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONSchema("Matches, closest first", openapi.ArrayOf("Match")),
			400: openapi.ResponseRef("BadRequest"),
		},
	}
	pageOp = &openapi.Operation{
		Summary: "Page through saved records",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "1-based page number", false),
			openapi.QueryParam("page_size", "integer", "Records per page", false),
			openapi.QueryParam("search", "string", "Match on name or description", false),
			openapi.QueryParam("sort", "string", "Sort fields, e.g. -confidence,name", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of records", "RecordPage"),
			400: openapi.ResponseRef("BadRequest"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
	searchOp = &openapi.Operation{
		Summary:     "Search saved records",
		RequestBody: openapi.RequestBodyJSON("SearchRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of records", "RecordPage"),
			400: openapi.ResponseRef("BadRequest"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
	findOp = &openapi.Operation{
		Summary:    "Find a record",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Record", "Record"),
			404: openapi.ResponseRef("NotFound"),
		},
	}
	deleteOp = &openapi.Operation{
		Summary:     "Delete a record",
		Description: "Deleting an absent id succeeds.",
		Parameters:  []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			204: {Description: "Record removed"},
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
)
