package agent

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"

	"story-creation-assistant/client"
)

// TitleResponse is the structured answer requested from the titler roles.
type TitleResponse struct {
	Title string `json:"title" jsonschema_description:"The title only, 6 words or less, without quotes"`
}

var titleSchema = func() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(TitleResponse{})
}()

// TitleSchema is the response schema attached to titler requests.
func TitleSchema() *client.Schema {
	return &client.Schema{
		Name:        "title_response",
		Description: "A short title",
		Definition:  titleSchema,
	}
}

func isTitler(role Role) bool {
	return role == ChapterTitler || role == StoryTitler
}

// ParseTitle extracts the title from a structured answer, falling back to
// the raw text, and normalizes it.
func ParseTitle(raw string) string {
	var resp TitleResponse
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &resp); err == nil && resp.Title != "" {
		return NormalizeTitle(resp.Title)
	}
	return NormalizeTitle(raw)
}

// NormalizeTitle trims whitespace, a leading "Title:" label and the quote
// characters models like to wrap titles in.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) >= 6 && strings.EqualFold(s[:6], "title:") {
		s = strings.TrimSpace(s[6:])
	}
	s = strings.TrimLeft(s, "#* ")
	s = strings.TrimRight(s, "* ")
	s = strings.Trim(s, "\"'“”‘’`")
	s = strings.ReplaceAll(s, "\"", "")
	return strings.TrimSpace(s)
}
