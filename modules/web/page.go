package web

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/example/task-manager/modules/task"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP text form.
const timestampLayout = "2006-01-02 15:04:05"

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"timestamp": func(t time.Time) string { return t.UTC().Format(timestampLayout) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Task Manager</title>
</head>
<body>
    <h1>Task Manager</h1>
{{if .Message}}
    <p class="confirmation">{{.Message}}</p>
{{end}}
    <h2>Add a task</h2>
    <form method="post">
        <input type="hidden" name="action" value="add">
        <label for="title">Title:</label>
        <input type="text" id="title" name="title" required><br>
        <label for="description">Description:</label>
        <textarea id="description" name="description"></textarea><br>
        <button type="submit">Add</button>
    </form>

    <h2>Tasks</h2>
    <ul>
{{range .Tasks}}        <li>#{{.ID}} <strong>{{.Title}}</strong>: {{.Description}} ({{.Status}}) - {{timestamp .CreatedAt}}</li>
{{end}}    </ul>

    <h2>Task actions</h2>
    <form method="post">
        <input type="hidden" name="action" value="complete">
        <label for="complete-id">ID of the task to complete:</label>
        <input type="number" id="complete-id" name="id" required>
        <button type="submit">Complete</button>
    </form>
    <form method="post">
        <input type="hidden" name="action" value="delete">
        <label for="delete-id">ID of the task to delete:</label>
        <input type="number" id="delete-id" name="id" required>
        <button type="submit">Delete</button>
    </form>
</body>
</html>
`))

// pageData is what the page template renders.
type pageData struct {
	Message string
	Tasks   []task.TaskResponse
}

// renderPage renders the whole page into memory so a failure never produces
// a partial response.
func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}
