// Package revalrc locates and parses the .revalrc file that tells reval
// where the development server for a project is listening.
//
// A .revalrc holds a single line of the form host:port[/prefix], e.g.
//
//	localhost:4000/app
//
// The directory holding the file is the project root; files are identified
// to the server by their path relative to that root.
package revalrc

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reval/internal/logging"
)

const (
	// FileName is the name searched for in each ancestor directory.
	FileName = ".revalrc"

	DefaultHost = "localhost"
	DefaultPort = 3000

	// DefaultConfig is used when no .revalrc exists up to the filesystem root.
	DefaultConfig = "localhost:3000"
)

// ProjectConfig is the connection and path information for one file.
// It is built fresh for every command and never mutated afterwards.
type ProjectConfig struct {
	Host       string
	Port       int
	PathPrefix string

	// Root is the directory holding the discovered .revalrc. Empty when
	// none was found.
	Root string

	// RelativePath is the file path relative to Root, or the path as given
	// when no .revalrc was found.
	RelativePath string

	// ConfigPath is the .revalrc that was read. Empty when none was found.
	ConfigPath string
}

// Found reports whether a .revalrc was discovered.
func (c ProjectConfig) Found() bool {
	return c.ConfigPath != ""
}

// Address returns host:port.
func (c ProjectConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the http URL of the reval server, without the path prefix.
func (c ProjectConfig) BaseURL() string {
	return "http://" + c.Address()
}

// Resolver turns a file path into a ProjectConfig.
type Resolver struct {
	logger *logging.AppLogger
}

// NewResolver creates a resolver. A nil logger uses the package default.
func NewResolver(logger *logging.AppLogger) *Resolver {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Resolver{logger: logger}
}

// Resolve finds the .revalrc governing filePath and parses it.
//
// Resolve never fails: a missing file falls back to localhost:3000 and a
// malformed one to the same defaults. Both cases are only logged.
func (r *Resolver) Resolve(filePath string) ProjectConfig {
	configPath, found := Find(filepath.Dir(filePath))

	raw := DefaultConfig
	if found {
		content, err := os.ReadFile(configPath)
		if err != nil {
			// Unreadable counts as malformed: defaults, error log.
			r.logger.Error("Cannot read .revalrc", "path", configPath, "error", err)
			raw = ""
		} else {
			raw = string(content)
		}
	} else {
		r.logger.Info("reval did not find .revalrc; using default", "config", DefaultConfig, "file", filePath)
	}

	host, port, prefix, ok := Parse(raw)
	if !ok {
		r.logger.Error("Invalid .revalrc", "path", configPath, "content", raw)
	}

	cfg := ProjectConfig{
		Host:         host,
		Port:         port,
		PathPrefix:   prefix,
		RelativePath: filePath,
	}

	if found {
		cfg.ConfigPath = configPath
		cfg.Root = filepath.Dir(configPath)
		if rel, err := filepath.Rel(cfg.Root, filePath); err == nil {
			cfg.RelativePath = rel
		} else {
			r.logger.Warn("Cannot relativize path", "root", cfg.Root, "file", filePath, "error", err)
		}
	}

	r.logger.DebugObject("project_config", cfg)
	return cfg
}

// Find searches dir and its ancestors for a .revalrc and returns the first
// one found. ok is false when the filesystem root is reached without a match.
func Find(dir string) (path string, ok bool) {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Parse tokenizes a host:port[/prefix] string.
//
// The prefix rides on the port token rather than being a third colon field;
// existing .revalrc files depend on that. ok is false when the content does
// not split into exactly two colon-separated tokens, in which case the
// returned values are the defaults.
func Parse(raw string) (host string, port int, prefix string, ok bool) {
	tokens := strings.Split(strings.TrimSpace(raw), ":")
	if len(tokens) != 2 {
		return DefaultHost, DefaultPort, "", false
	}

	host = strings.TrimSpace(tokens[0])
	if host == "" {
		host = DefaultHost
	}

	portParts := strings.Split(tokens[1], "/")
	if len(portParts) == 2 {
		if seg := strings.TrimSpace(portParts[1]); seg != "" {
			prefix = "/" + seg
		}
	}

	port, err := strconv.Atoi(strings.TrimSpace(portParts[0]))
	if err != nil || port == 0 {
		port = DefaultPort
	}

	return host, port, prefix, true
}
