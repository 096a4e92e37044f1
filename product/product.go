// Package product defines the product record, the inputs that create and
// update it, and the error kinds surfaced by the store and service layers.
package product

import "maps"

// Record is a persisted product.
type Record struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Price       float64           `json:"price"`
	Rating      *float64          `json:"rating"`
	Specs       map[string]string `json:"specs"`
}

// Clone returns a deep copy of r. Nil specs come back as an empty map.
func (r Record) Clone() Record {
	c := r
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	c.Specs = cloneSpecs(r.Specs)
	return c
}

func cloneSpecs(src map[string]string) map[string]string {
	if src == nil {
		return map[string]string{}
	}
	return maps.Clone(src)
}

// CreateInput carries the fields of a new product. Rating and Specs may be
// omitted.
type CreateInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Price       float64           `json:"price"`
	Rating      *float64          `json:"rating"`
	Specs       map[string]string `json:"specs"`
}

// Record builds the record for in with the given id.
func (in CreateInput) Record(id int) Record {
	return Record{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Rating:      cloneRating(in.Rating),
		Specs:       cloneSpecs(in.Specs),
	}
}

// FullUpdateInput replaces every domain field of a product. Nothing from the
// previous record survives a full update except its id.
type FullUpdateInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Price       float64           `json:"price"`
	Rating      *float64          `json:"rating"`
	Specs       map[string]string `json:"specs"`
}

// Record builds the replacement record for in with the given id.
func (in FullUpdateInput) Record(id int) Record {
	return Record{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Rating:      cloneRating(in.Rating),
		Specs:       cloneSpecs(in.Specs),
	}
}

// PartialUpdateInput holds the fields a partial update sets. Only fields
// whose Optional is Set are applied. An "id" key in the payload is ignored.
type PartialUpdateInput struct {
	Name        Optional[string]            `json:"name"`
	Description Optional[string]            `json:"description"`
	ImageURL    Optional[string]            `json:"image_url"`
	Price       Optional[float64]           `json:"price"`
	Rating      Optional[*float64]          `json:"rating"`
	Specs       Optional[map[string]string] `json:"specs"`
}

// Apply returns a copy of r with the set fields of in overlaid. The id is
// never changed.
func (in PartialUpdateInput) Apply(r Record) Record {
	out := r.Clone()
	if v, ok := in.Name.Get(); ok {
		out.Name = v
	}
	if v, ok := in.Description.Get(); ok {
		out.Description = v
	}
	if v, ok := in.ImageURL.Get(); ok {
		out.ImageURL = v
	}
	if v, ok := in.Price.Get(); ok {
		out.Price = v
	}
	if v, ok := in.Rating.Get(); ok {
		out.Rating = cloneRating(v)
	}
	if v, ok := in.Specs.Get(); ok {
		out.Specs = cloneSpecs(v)
	}
	return out
}

// Fields lists the JSON names of the fields in sets, in declaration order.
func (in PartialUpdateInput) Fields() []string {
	var fields []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"name", in.Name.Set},
		{"description", in.Description.Set},
		{"image_url", in.ImageURL.Set},
		{"price", in.Price.Set},
		{"rating", in.Rating.Set},
		{"specs", in.Specs.Set},
	} {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func cloneRating(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
