package config

// FieldType classifies the kind of value a config field accepts.
type FieldType string

const (
	// FieldBool accepts true or false.
	FieldBool FieldType = "bool"
	// FieldEnum accepts one of a fixed set of options.
	FieldEnum FieldType = "enum"
	// FieldFreetext accepts arbitrary string input.
	FieldFreetext FieldType = "freetext"
	// FieldCommand accepts a command line split with shell quoting rules.
	FieldCommand FieldType = "command"
	// FieldPositiveInt accepts a positive integer.
	FieldPositiveInt FieldType = "positive_int"
)

// FieldOption describes a single selectable value for a field.
type FieldOption struct {
	Value       string
	Description string // empty for options without descriptions
}

// FieldDef describes a single config field's type, constraints, and valid options.
type FieldDef struct {
	Key         string
	Type        FieldType
	Description string
	Options     []FieldOption
}

// fields is the canonical ordered registry of all config fields.
var fields = buildFields()

func buildFields() []FieldDef {
	out := []FieldDef{
		{
			Key:         "log_level",
			Type:        FieldEnum,
			Description: "minimum level written to stderr",
			Options: []FieldOption{
				{Value: "debug", Description: "every service hook invocation"},
				{Value: "info", Description: "committed transactions and recoveries"},
				{Value: "warn", Description: "rollbacks"},
				{Value: "error", Description: "failures that need operator attention"},
				{Value: "none", Description: "no logging"},
			},
		},
	}
	for _, service := range []string{ServiceDHCP, ServiceNamed} {
		out = append(out,
			FieldDef{Key: service + ".enabled", Type: FieldBool, Description: "manage this service"},
			FieldDef{Key: service + ".base", Type: FieldFreetext, Description: "absolute directory holding the generated tree"},
			FieldDef{Key: service + ".is_running_command", Type: FieldCommand, Description: "exits 0 when the daemon is up"},
			FieldDef{Key: service + ".validate_command", Type: FieldCommand, Description: "exits 0 when the live config is valid"},
			FieldDef{Key: service + ".restart_command", Type: FieldCommand, Description: "restarts the daemon"},
			FieldDef{Key: service + ".command_timeout_seconds", Type: FieldPositiveInt, Description: "bound on each command"},
		)
	}
	return out
}

// fieldIndex provides O(1) lookup by key.
var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Key] = i
	}
	return idx
}

// LookupField returns the field definition for the given config key.
// Returns false when the key is not in the catalog.
func LookupField(key string) (FieldDef, bool) {
	i, ok := fieldIndex[key]
	if !ok {
		return FieldDef{}, false
	}
	return copyFieldDef(fields[i]), true
}

// Fields returns a copy of all registered field definitions in catalog order.
func Fields() []FieldDef {
	out := make([]FieldDef, len(fields))
	for i, f := range fields {
		out[i] = copyFieldDef(f)
	}
	return out
}

// FieldOptionValues returns the option values for a field as a plain string slice.
// Returns nil when the key is not in the catalog or has no options.
func FieldOptionValues(key string) []string {
	f, ok := LookupField(key)
	if !ok || len(f.Options) == 0 {
		return nil
	}
	values := make([]string, len(f.Options))
	for i, opt := range f.Options {
		values[i] = opt.Value
	}
	return values
}

// copyFieldDef returns a deep copy of a FieldDef so callers cannot mutate the registry.
func copyFieldDef(f FieldDef) FieldDef {
	if len(f.Options) > 0 {
		opts := make([]FieldOption, len(f.Options))
		copy(opts, f.Options)
		f.Options = opts
	}
	return f
}
