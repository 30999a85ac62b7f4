package model

// TagRef is a tag named by slug, with the catalog id once it has been resolved.
type TagRef struct {
	ID   int    `json:"id,omitempty"`
	Slug string `json:"slug"`
}

// EntitySet is the sparse set of fields extracted from one message.
// Every field is optional; nil means the field was not found.
type EntitySet struct {
	ProductID      *int     `json:"product_id,omitempty"`
	ProductName    *string  `json:"product_name,omitempty"`
	ProductSlug    *string  `json:"product_slug,omitempty"`
	CategoryID     *int     `json:"category_id,omitempty"`
	CategoryName   *string  `json:"category_name,omitempty"`
	CategorySlug   *string  `json:"category_slug,omitempty"`
	Finish         *string  `json:"finish,omitempty"`
	Color          *string  `json:"color,omitempty"`
	Size           *string  `json:"size,omitempty"`
	SampleSize     *string  `json:"sample_size,omitempty"`
	Thickness      *string  `json:"thickness,omitempty"`
	Origin         *string  `json:"origin,omitempty"`
	Visual         *string  `json:"visual,omitempty"`
	Application    *string  `json:"application,omitempty"`
	CollectionYear *string  `json:"collection_year,omitempty"`
	Tags           []TagRef `json:"tags,omitempty"`
	Quantity       *int     `json:"quantity,omitempty"`
	OrderID        *int     `json:"order_id,omitempty"`
	OrderItemName  *string  `json:"order_item_name,omitempty"`
	OrderCount     *int     `json:"order_count,omitempty"`
	OnSale         *bool    `json:"on_sale,omitempty"`
	Reorder        *bool    `json:"reorder,omitempty"`
}

// MergeEntities combines partial records left to right. The first record
// that sets a field wins; later records only fill fields still empty.
func MergeEntities(parts ...EntitySet) EntitySet {
	var out EntitySet
	for _, p := range parts {
		out = out.FillMissing(p)
	}
	return out
}

// FillMissing returns a copy of e where every empty field is taken from other.
// Populated fields of e are never overwritten.
func (e EntitySet) FillMissing(other EntitySet) EntitySet {
	out := e.Clone()
	fillInt(&out.ProductID, other.ProductID)
	fillStr(&out.ProductName, other.ProductName)
	fillStr(&out.ProductSlug, other.ProductSlug)
	fillInt(&out.CategoryID, other.CategoryID)
	fillStr(&out.CategoryName, other.CategoryName)
	fillStr(&out.CategorySlug, other.CategorySlug)
	fillStr(&out.Finish, other.Finish)
	fillStr(&out.Color, other.Color)
	fillStr(&out.Size, other.Size)
	fillStr(&out.SampleSize, other.SampleSize)
	fillStr(&out.Thickness, other.Thickness)
	fillStr(&out.Origin, other.Origin)
	fillStr(&out.Visual, other.Visual)
	fillStr(&out.Application, other.Application)
	fillStr(&out.CollectionYear, other.CollectionYear)
	if len(out.Tags) == 0 && len(other.Tags) > 0 {
		out.Tags = append([]TagRef(nil), other.Tags...)
	}
	fillInt(&out.Quantity, other.Quantity)
	fillInt(&out.OrderID, other.OrderID)
	fillStr(&out.OrderItemName, other.OrderItemName)
	fillInt(&out.OrderCount, other.OrderCount)
	fillBool(&out.OnSale, other.OnSale)
	fillBool(&out.Reorder, other.Reorder)
	return out
}

// Clone returns a deep copy so callers can derive new sets without aliasing.
func (e EntitySet) Clone() EntitySet {
	out := EntitySet{
		ProductID:      cloneInt(e.ProductID),
		ProductName:    cloneStr(e.ProductName),
		ProductSlug:    cloneStr(e.ProductSlug),
		CategoryID:     cloneInt(e.CategoryID),
		CategoryName:   cloneStr(e.CategoryName),
		CategorySlug:   cloneStr(e.CategorySlug),
		Finish:         cloneStr(e.Finish),
		Color:          cloneStr(e.Color),
		Size:           cloneStr(e.Size),
		SampleSize:     cloneStr(e.SampleSize),
		Thickness:      cloneStr(e.Thickness),
		Origin:         cloneStr(e.Origin),
		Visual:         cloneStr(e.Visual),
		Application:    cloneStr(e.Application),
		CollectionYear: cloneStr(e.CollectionYear),
		Quantity:       cloneInt(e.Quantity),
		OrderID:        cloneInt(e.OrderID),
		OrderItemName:  cloneStr(e.OrderItemName),
		OrderCount:     cloneInt(e.OrderCount),
		OnSale:         cloneBool(e.OnSale),
		Reorder:        cloneBool(e.Reorder),
	}
	if len(e.Tags) > 0 {
		out.Tags = append([]TagRef(nil), e.Tags...)
	}
	return out
}

// WithTag returns a copy with the tag slug appended unless already present.
func (e EntitySet) WithTag(slug string) EntitySet {
	out := e.Clone()
	for _, t := range out.Tags {
		if t.Slug == slug {
			return out
		}
	}
	out.Tags = append(out.Tags, TagRef{Slug: slug})
	return out
}

// HasProduct reports whether a product reference was extracted.
func (e EntitySet) HasProduct() bool {
	return e.ProductID != nil || e.ProductName != nil
}

// HasCategory reports whether a category reference was extracted.
func (e EntitySet) HasCategory() bool {
	return e.CategoryID != nil || e.CategoryName != nil
}

// IsEmpty reports whether no field is set.
func (e EntitySet) IsEmpty() bool {
	return e.ProductID == nil && e.ProductName == nil && e.ProductSlug == nil &&
		e.CategoryID == nil && e.CategoryName == nil && e.CategorySlug == nil &&
		e.Finish == nil && e.Color == nil && e.Size == nil && e.SampleSize == nil &&
		e.Thickness == nil && e.Origin == nil && e.Visual == nil && e.Application == nil &&
		e.CollectionYear == nil && len(e.Tags) == 0 && e.Quantity == nil && e.OrderID == nil &&
		e.OrderItemName == nil && e.OrderCount == nil && e.OnSale == nil && e.Reorder == nil
}

// Attributes returns the variation-relevant attribute filters keyed by
// attribute name. Only populated fields are included.
func (e EntitySet) Attributes() map[string]string {
	out := make(map[string]string)
	put := func(key string, v *string) {
		if v != nil && *v != "" {
			out[key] = *v
		}
	}
	put(AttrFinish, e.Finish)
	put(AttrColor, e.Color)
	if e.SampleSize != nil {
		put(AttrSize, e.SampleSize)
	} else {
		put(AttrSize, e.Size)
	}
	put(AttrThickness, e.Thickness)
	put(AttrOrigin, e.Origin)
	put(AttrVisual, e.Visual)
	return out
}

// Attribute names shared by the extractor, the resolver and the catalog.
const (
	AttrFinish         = "finish"
	AttrColor          = "color"
	AttrSize           = "size"
	AttrThickness      = "thickness"
	AttrOrigin         = "origin"
	AttrVisual         = "visual"
	AttrApplication    = "application"
	AttrCollectionYear = "collection-year"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func fillStr(dst **string, src *string) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func fillInt(dst **int, src *int) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func fillBool(dst **bool, src *bool) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
