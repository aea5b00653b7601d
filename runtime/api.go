package runtime

// Simple API functions for ease of use

// Evaluate evaluates one directive expression against locals with the
// template helpers bound. `include` resolves files relative to the working
// directory.
func Evaluate(source string, locals map[string]interface{}) (string, error) {
	env := NewEnvironment(WithLoader(NewFileSystemLoader()))
	return env.Evaluate(".", source, locals)
}

// Render renders dir/file from the file system relative to the working
// directory
func Render(dir, file string, locals map[string]interface{}, debug bool) (*Result, error) {
	env := NewEnvironment(WithLoader(NewFileSystemLoader()))
	return env.Render(dir, file, locals, debug)
}

// RenderString renders a template held in memory as dir/index.html.
// Imports and includes of other files fail to load.
func RenderString(source string, locals map[string]interface{}) (*Result, error) {
	env := NewEnvironment(WithLoader(NewMapLoader(map[string]string{
		"mem/" + DefaultFile: source,
	})))
	return env.Render("mem", "", locals, false)
}
