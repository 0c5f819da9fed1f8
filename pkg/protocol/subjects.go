package protocol

import "fmt"

// SubjectAllEvents matches every activity subject.
const SubjectAllEvents = "mkxray.events.>"

// Event sources.
const (
	SourceWeb = "web"
	SourceAPI = "api"
	SourceMCP = "mcp"
)

// KnownSource reports whether source is one of the event sources above.
func KnownSource(source string) bool {
	switch source {
	case SourceWeb, SourceAPI, SourceMCP:
		return true
	}
	return false
}

func SubjectEvents(source string) string {
	return fmt.Sprintf("mkxray.events.%s", source)
}
