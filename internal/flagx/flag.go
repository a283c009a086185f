// Package flagx extracts a handful of known flags from os.Args without
// consuming the rest, so several config sources can each read their own.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps only the flags listed in allowedFlags, together with their
// values. Both "-c value" and "-c=value" forms are recognized. A token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// stringFlag parses a single string flag registered under every name in names.
// The last occurrence wins; an absent flag yields "".
func stringFlag(args []string, usage string, names ...string) string {
	allowed := make([]string, 0, len(names)*2)
	for _, n := range names {
		allowed = append(allowed, "-"+n, "--"+n)
	}

	var value string
	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(discard{})
	for _, n := range names {
		fs.StringVar(&value, n, "", usage)
	}
	_ = fs.Parse(FilterArgs(args, allowed))

	return value
}

// JsonConfigFlags returns the path given by -c or -config, or "".
func JsonConfigFlags(args []string) string {
	return stringFlag(args, "path to JSON config file", "c", "config")
}

// EnvFileFlags returns the path given by -e or -env-file, or "".
func EnvFileFlags(args []string) string {
	return stringFlag(args, "path to .env file", "e", "env-file")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
