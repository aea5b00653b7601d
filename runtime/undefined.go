package runtime

// Undefined is the value of a missing property, a missing argument or a
// declared but unassigned variable. It is distinct from null (Go nil).
// References to names that were never declared do not produce Undefined;
// they fail with an UndefinedError.
type Undefined struct {
	name string
}

// Reason describes where the undefined value came from
func (u Undefined) Reason() string {
	if u.name != "" {
		return "undefined property '" + u.name + "'"
	}
	return "undefined"
}

func (u Undefined) String() string {
	return "undefined"
}

var undefinedValue = Undefined{}

// NewUndefined returns an undefined value remembering the property name
func NewUndefined(name string) Undefined {
	return Undefined{name: name}
}

func isUndefinedValue(value interface{}) bool {
	if value == nil {
		return false
	}
	_, ok := value.(Undefined)
	return ok
}

// isNullish reports whether a value is null or undefined
func isNullish(value interface{}) bool {
	return value == nil || isUndefinedValue(value)
}
