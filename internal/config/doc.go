// Package config manages user-level settings stored at ~/.svcgen/config.yaml.
// Every key can be overridden by an SVCGEN_<KEY> environment variable. The
// settings tune how discovery runs: the default log level, the archive
// extensions recognised on the classpath, how many archives stay open and
// which package prefixes count as part of the Java platform.
package config
