// Package flagx lets independent flag sets share one command line: each
// layer picks out the flags it owns and ignores the rest.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, with their values.
// Both "-f value" and "-f=value" forms are recognised; a following token
// that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	owned, _ := split(args, allowed)
	return owned
}

// Rest returns what FilterArgs would drop, in order.
func Rest(args []string, allowed []string) []string {
	_, rest := split(args, allowed)
	return rest
}

func split(args []string, allowed []string) ([]string, []string) {
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}

	owned, rest := []string{}, []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if known[name] {
				owned = append(owned, arg)
			} else {
				rest = append(rest, arg)
			}
			continue
		}
		if !known[arg] {
			rest = append(rest, arg)
			continue
		}
		owned = append(owned, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			owned = append(owned, args[i])
		}
	}
	return owned, rest
}

// ConfigFile returns the path given by -c or -config, or "" when neither is
// present. The last occurrence wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
