package labelsync

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s
</body>
</html>
`

// handleIndex renders a markdown overview of the API and the latest runs
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# labelsync\n")
	fmt.Fprintf(&markdownBuilder, "> Pushes COCO annotated datasets from object storage to Roboflow projects.\n\n")

	fmt.Fprintf(&markdownBuilder, "## Endpoints\n\n")
	for _, line := range []string{
		"`POST /sync` start a sync, body `{\"version\", \"dataset\", \"projectId\"}`",
		"[`GET /versions`](/versions) dataset versions",
		"`GET /versions/{version}/datasets` datasets of a version",
		"`GET /versions/{version}/datasets/{dataset}/stats` dataset statistics",
		"[`GET /projects`](/projects) remote projects, `?q=` filters",
		"[`GET /runs`](/runs) recorded runs",
		"[`GET /health`](/health) liveness",
	} {
		fmt.Fprintf(&markdownBuilder, "- %s\n", line)
	}

	if a.Runs != nil {
		runs, err := a.Runs.List(r.Context(), 10)
		if err != nil {
			a.logger().Error("while listing runs for index", "error", err)
		}
		fmt.Fprintf(&markdownBuilder, "\n## Recent runs\n\n")
		if len(runs) == 0 {
			fmt.Fprintf(&markdownBuilder, "_No runs recorded yet._\n")
		}
		for _, run := range runs {
			status := "ok"
			switch {
			case run.Error != "":
				status = "error"
			case run.Cancelled:
				status = "cancelled"
			case !run.Success:
				status = "failures"
			}
			fmt.Fprintf(&markdownBuilder, "- [%s](/runs/%s) %s/%s → %s: %d uploaded, %d failed (%s)\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.ID,
				escapeMarkdown(run.Version), escapeMarkdown(run.Dataset), escapeMarkdown(run.ProjectID),
				run.Uploaded, run.Failed, status)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate, "labelsync", blackfriday.Run([]byte(markdownBuilder.String())))
}

// escapeMarkdown neutralizes user supplied names before rendering
func escapeMarkdown(s string) string {
	s = html.EscapeString(s)
	return strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`").Replace(s)
}
