package api

type (
	// Args represents a map of named input fields passed to an execution
	Args map[Name]any

	// Name is a string identifier for input fields and output mappings
	Name string
)

// Variables converts the args into the plain map form used by templates
func (a Args) Variables() map[string]any {
	res := make(map[string]any, len(a))
	for k, v := range a {
		res[string(k)] = v
	}
	return res
}
