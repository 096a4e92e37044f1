package schema

// Property schemas shared by the product request bodies.
var (
	nameProp        = map[string]any{"type": "string", "minLength": 1}
	descriptionProp = map[string]any{"type": "string"}
	imageURLProp    = map[string]any{"type": "string", "format": "uri"}
	priceProp       = map[string]any{"type": "number"}
	ratingProp      = map[string]any{"type": []any{"number", "null"}, "minimum": 0, "maximum": 5}
	specsProp       = map[string]any{
		"type":                 []any{"object", "null"},
		"additionalProperties": map[string]any{"type": "string"},
	}
)

func productProperties() map[string]any {
	return map[string]any{
		"name":        nameProp,
		"description": descriptionProp,
		"image_url":   imageURLProp,
		"price":       priceProp,
		"rating":      ratingProp,
		"specs":       specsProp,
	}
}

// Schemas for the three product request bodies. Unknown keys, including
// "id", are accepted and ignored.
var (
	CreateProduct = map[string]any{
		"type":       "object",
		"required":   []any{"name", "description", "image_url", "price"},
		"properties": productProperties(),
	}
	ReplaceProduct = map[string]any{
		"type":       "object",
		"required":   []any{"name", "description", "image_url", "price", "rating", "specs"},
		"properties": productProperties(),
	}
	PatchProduct = map[string]any{
		"type":       "object",
		"properties": productProperties(),
	}
)
