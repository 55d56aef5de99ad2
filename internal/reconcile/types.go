package reconcile

// Record is the normalized output of a reconciliation run. A nil field means no
// source supplied a value.
type Record struct {
	Database     *string `json:"database" yaml:"database"`
	User         *string `json:"user" yaml:"user"`
	Password     *string `json:"password" yaml:"password"`
	RootPassword *string `json:"root_password" yaml:"root_password"`
}

// Field is one named entry of a Record.
type Field struct {
	Name  string
	Value *string
}

// Fields returns the record entries in declaration order.
func (r Record) Fields() []Field {
	return []Field{
		{Name: "database", Value: r.Database},
		{Name: "user", Value: r.User},
		{Name: "password", Value: r.Password},
		{Name: "root_password", Value: r.RootPassword},
	}
}

// Equal reports whether both records carry the same values.
func (r Record) Equal(other Record) bool {
	return equalValue(r.Database, other.Database) &&
		equalValue(r.User, other.User) &&
		equalValue(r.Password, other.Password) &&
		equalValue(r.RootPassword, other.RootPassword)
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Mode selects how YAML files are turned into credential mappings.
type Mode string

const (
	// ModeHeuristic uses the line-oriented extractor and only reports where a
	// nesting-aware parse would disagree.
	ModeHeuristic Mode = "heuristic"
	// ModeNested uses the yaml.v3 based extractor.
	ModeNested Mode = "nested"
)

// Modes lists the supported extractor modes.
func Modes() []string {
	return []string{string(ModeHeuristic), string(ModeNested)}
}
