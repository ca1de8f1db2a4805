package telemetry

// Kind discriminates how a field is typed and cleaned.
type Kind int

// Field kinds.
const (
	KindNumber Kind = iota
	KindString
)

// Bounds is a closed numeric interval.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Field describes one column of a domain schema.
type Field struct {
	Name string
	Kind Kind

	// Bounds are the documented physical limits for numeric fields; values
	// outside become null during cleaning. Nil means unbounded.
	Bounds *Bounds

	// Required fields participate in the required-field filter; a record
	// missing any of them is dropped.
	Required bool

	// Important fields are the non-null contract subset: high missingness
	// across them triggers wholesale synthetic substitution.
	Important bool

	// Default, when non-empty, is the constant fallback for a null
	// categorical value (e.g. unknown country -> "VN").
	Default string

	// Synth, when non-nil, is the plausible envelope for synthetic numeric
	// fallback values.
	Synth *Bounds
}

// Dimension describes one categorical dimension table.
type Dimension struct {
	// Name is the dimension table name; its surrogate key column is
	// Name + "_id".
	Name string
	// NaturalKey lists the categorical fields forming the natural key, in
	// column order.
	NaturalKey []string
	// Attrs are additional fields carried onto the dimension row (numeric
	// or categorical), not part of the key.
	Attrs []string
}

// KeyColumn returns the surrogate key column name.
func (d Dimension) KeyColumn() string { return d.Name + "_id" }

// Schema is the per-domain descriptor that parameterizes the whole
// pipeline: field list, physical bounds, and dimensional decomposition.
// One value per domain replaces four copy-pasted pipelines.
type Schema struct {
	Domain     string
	FactTable  string
	Fields     []Field
	Dimensions []Dimension
}

// Field returns the descriptor for a field name, if present.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NumberFields returns the numeric field descriptors in schema order.
func (s Schema) NumberFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Kind == KindNumber {
			out = append(out, f)
		}
	}
	return out
}

// StringFields returns the categorical field descriptors in schema order.
func (s Schema) StringFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Kind == KindString {
			out = append(out, f)
		}
	}
	return out
}

// ImportantFields returns the designated non-null contract subset.
func (s Schema) ImportantFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Important {
			out = append(out, f)
		}
	}
	return out
}

// DimensionFieldSet reports the set of fields consumed by any dimension,
// used by the transform to split fact columns from dimension columns.
func (s Schema) DimensionFieldSet() map[string]bool {
	set := make(map[string]bool)
	for _, d := range s.Dimensions {
		for _, f := range d.NaturalKey {
			set[f] = true
		}
		for _, f := range d.Attrs {
			set[f] = true
		}
	}
	return set
}
