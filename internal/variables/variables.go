// Package variables builds the job's Variable Environment: the four-layer
// precedence merge of built-in defaults, config-file variables, an
// extras-file, and CLI extras, and the $name/$$ substitution applied to
// every step field before scheduling.
package variables

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"dario.cat/mergo"
)

// Environment is the fully merged, immutable set of variables resolved
// once at job init.
type Environment map[string]string

// Builtins computes the built-in variable layer, matching
// original_source/src/job_control/jobs.py's CONFIG_DEFAULTS: concurrency,
// config_file, date/date_time variants, hostname(_fqdn), and the empty
// mail defaults that config-file variables are expected to override.
func Builtins(configFile string, now time.Time) Environment {
	host, fqdn := hostnames()
	return Environment{
		"concurrency":        fmt.Sprintf("%d", runtime.NumCPU()),
		"config_file":        configFile,
		"date":               now.Format("2006_01_02"),
		"date_time":          now.Format("20060102_150405"),
		"date_time_2":        now.Format("20060102-150405"),
		"date_time_3":        now.Format("20060102150405"),
		"date_time_4":        now.Format("2006-01-02 15:04:05"),
		"date_time_friendly": now.Format("Mon Jan _2 15:04:05 2006"),
		"hostname":           host,
		"hostname_fqdn":      fqdn,
		"mail_from_domain":   fqdn,
		"mail_from":          fmt.Sprintf("%s@%s", host, fqdn),
		"mail_to":            "",
		"mail_to_fail":       "",
		"smtp_relay":         "localhost",
	}
}

func hostnames() (host, fqdn string) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	fqdn = host
	if cname, err := net.LookupCNAME(host); err == nil && cname != "" {
		fqdn = trimTrailingDot(cname)
	}
	return host, fqdn
}

func trimTrailingDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}

// Merge layers the four precedence levels in ascending priority:
// builtins < configVars < extrasFile < cliExtras. Each layer overrides
// keys present in the layers before it; mergo.WithOverride gives the
// later argument priority, so layers are folded left to right.
func Merge(builtins, configVars, extrasFile, cliExtras Environment) (Environment, error) {
	merged := Environment{}
	for _, layer := range []Environment{builtins, configVars, extrasFile, cliExtras} {
		if layer == nil {
			continue
		}
		if err := mergo.Merge(&merged, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging variable layer: %w", err)
		}
	}
	return merged, nil
}
