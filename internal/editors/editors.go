package editors

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"reval/internal/dispatch"
	"reval/internal/errors"
	"reval/internal/revalrc"
)

// Command ids as editors bind them.
const (
	ReloadCurrentFile = "reval:reload-current-file"
	ClearCurrentFile  = "reval:clear-current-file"
	ClearAllFiles     = "reval:clear-all-files"
)

// BodyKind selects what a command sends as its request body.
type BodyKind int

const (
	// BodyNone sends no payload
	BodyNone BodyKind = iota
	// BodyBufferText sends the current buffer text
	BodyBufferText
	// BodyRelativePathList sends a JSON array holding the relative path
	BodyRelativePathList
)

type Command struct {
	// ID is the editor command name, e.g. reval:reload-current-file
	ID string

	// Name is the short human label
	Name string

	// Explanation
	Explanation string

	// Endpoint is appended to the project's path prefix
	Endpoint string

	// PassFilePath adds ?filePath={relativePath} to the endpoint
	PassFilePath bool

	Body BodyKind

	// SuccessMessage is the notification title shown once the server answers
	SuccessMessage string
}

var Commands = []Command{
	{
		ID:             ReloadCurrentFile,
		Name:           "Reload current file",
		Explanation:    "Send the current buffer to the reval server so it patches the running module.",
		Endpoint:       "/reval/reload",
		PassFilePath:   true,
		Body:           BodyBufferText,
		SuccessMessage: "Patch Applied",
	},
	{
		ID:             ClearCurrentFile,
		Name:           "Clear current file",
		Explanation:    "Drop the patch the reval server holds for this file.",
		Endpoint:       "/reval/clear",
		Body:           BodyRelativePathList,
		SuccessMessage: "Patch Cleared",
	},
	{
		ID:             ClearAllFiles,
		Name:           "Clear all files",
		Explanation:    "Drop every patch the reval server holds for this project.",
		Endpoint:       "/reval/clear",
		Body:           BodyNone,
		SuccessMessage: "All Patches Cleared",
	},
}

// Interface that is compatible with bubble list components
func (c Command) Title() string       { return c.Name }
func (c Command) Description() string { return c.Explanation }
func (c Command) FilterValue() string {
	return c.Name + " " + c.ID + " " + c.Explanation
}

func GetAllCommands() []Command {
	return Commands
}

// Lookup returns the command with the given id.
func Lookup(id string) (Command, bool) {
	for _, c := range Commands {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}

// IDs lists every command id in catalog order.
func IDs() []string {
	ids := make([]string, 0, len(Commands))
	for _, c := range Commands {
		ids = append(ids, c.ID)
	}
	return ids
}

// NeedsBufferText reports whether Request uses the buffer text.
func (c Command) NeedsBufferText() bool {
	return c.Body == BodyBufferText
}

// Request builds the target and body for this command.
//
// Parameters:
//   - cfg: the resolved project configuration for the active file
//   - bufferText: the current buffer content, only used by reload
//
// Returns:
//   - dispatch.Target: host, port, method and path (with query) to call
//   - []byte: the body, nil when the command sends none
//   - error: non-nil only if the JSON body cannot be encoded
func (c Command) Request(cfg revalrc.ProjectConfig, bufferText string) (dispatch.Target, []byte, error) {
	path := cfg.PathPrefix + c.Endpoint
	if c.PassFilePath {
		path += "?filePath=" + escapeQueryPath(cfg.RelativePath)
	}

	target := dispatch.Target{
		Host:   cfg.Host,
		Port:   cfg.Port,
		Path:   path,
		Method: http.MethodPost,
	}

	switch c.Body {
	case BodyBufferText:
		return target, []byte(bufferText), nil
	case BodyRelativePathList:
		body, err := json.Marshal([]string{cfg.RelativePath})
		if err != nil {
			return target, nil, errors.Wrap(err, "encode clear body")
		}
		return target, body, nil
	default:
		return target, nil, nil
	}
}

// escapeQueryPath escapes each path segment for a query value while keeping
// the separators readable: src/app.js stays src/app.js.
func escapeQueryPath(p string) string {
	segments := strings.Split(filepath.ToSlash(p), "/")
	for i, s := range segments {
		segments[i] = url.QueryEscape(s)
	}
	return strings.Join(segments, "/")
}
