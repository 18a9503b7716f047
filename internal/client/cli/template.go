package cli

import "text/template"

const noteDetailsTemplate = `=== Note Details ===

Title: {{.Title}}
ID:    {{.ID}}

Content:
---
{{.Content}}
---
`

var noteDetails = template.Must(template.New("note").Parse(noteDetailsTemplate))
