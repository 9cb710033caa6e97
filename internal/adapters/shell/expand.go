package shell

import "strings"

// Expand returns a copy of argv with each {key} placeholder replaced by vars[key].
// Unknown placeholders are left untouched.
func Expand(argv []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}
