package report

import (
	"html/template"
	"strings"
	"time"

	"github.com/speaklab-io/speaklab/internal/evaluation"
)

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Language Assessment Report</title>
<style>
body { font-family: Georgia, serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #1d2733; }
h1 { border-bottom: 2px solid #1d2733; padding-bottom: .4rem; }
h2 { margin-top: 2rem; }
dl { display: grid; grid-template-columns: max-content auto; gap: .3rem 1rem; }
dt { font-weight: bold; }
pre { white-space: pre-wrap; background: #f5f6f8; padding: 1rem; border-radius: 6px; }
footer { margin-top: 3rem; font-size: .85rem; color: #6a7482; }
</style>
</head>
<body>
<h1>Language Assessment Report</h1>
<dl>
{{if .Meta.UserName}}<dt>Participant</dt><dd>{{.Meta.UserName}}</dd>{{end}}
{{if .Meta.Mode}}<dt>Mode</dt><dd>{{.Meta.Mode}}</dd>{{end}}
{{if .StartedAt}}<dt>Started</dt><dd>{{.StartedAt}}</dd>{{end}}
{{if .Duration}}<dt>Duration</dt><dd>{{.Duration}}</dd>{{end}}
{{if .Result.Metadata.WordCount}}<dt>Words spoken</dt><dd>{{.Result.Metadata.WordCount}}</dd>{{end}}
{{if .Result.Metadata.Turns}}<dt>Turns</dt><dd>{{.Result.Metadata.Turns}}</dd>{{end}}
</dl>
<h2>Scores</h2>
<pre>{{.Result.Analytic}}</pre>
<h2>Examiner Notes</h2>
<pre>{{.Result.Examiner}}</pre>
<footer>Generated {{.GeneratedAt}}{{if .Meta.SessionID}} &middot; session {{.Meta.SessionID}}{{end}}</footer>
</body>
</html>
`))

type reportData struct {
	Result      *evaluation.DualResult
	Meta        SessionMetadata
	StartedAt   string
	Duration    string
	GeneratedAt string
}

func render(result *evaluation.DualResult, meta SessionMetadata) (string, error) {
	data := reportData{
		Result:      result,
		Meta:        meta,
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 UTC"),
	}
	if result.Metadata.StartedAt != nil {
		data.StartedAt = result.Metadata.StartedAt.UTC().Format("2006-01-02 15:04 UTC")
	}
	if result.Metadata.DurationSec != nil {
		data.Duration = (time.Duration(*result.Metadata.DurationSec) * time.Second).String()
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
