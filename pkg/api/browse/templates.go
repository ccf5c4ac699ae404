package browse

import (
	"html/template"

	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

type dirRow struct {
	Name      string
	Href      string
	Size      string
	FileCount int64
	Modified  string
}

type fileRow struct {
	Name     string
	Href     string
	ViewHref string
	IsJSON   bool
	Size     string
	Modified string
}

type dirPage struct {
	Bucket      string
	Path        string
	Parent      string
	Breadcrumbs []vfs.Crumb
	Dirs        []dirRow
	Files       []fileRow
	TotalSize   string
	TotalFiles  int64
}

type viewerPage struct {
	Name        string
	Size        string
	Modified    string
	Content     string
	DownloadURL string
	ParentHref  string
}

var dirTemplate = template.Must(template.New("dir").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>/{{.Path}} - {{.Bucket}}</title>
<style>
body { font-family: 'SF Mono', 'Fira Code', Consolas, monospace; background: #f4f4f6; color: #1e1e2e; margin: 0; line-height: 1.6; }
.header { background: #5b4b8a; color: #fff; padding: 16px 24px; }
.header h1 { font-size: 1.1em; margin: 0 0 4px; }
.header .path a { color: rgba(255,255,255,.9); text-decoration: none; }
.container { max-width: 1100px; margin: 0 auto; padding: 20px 24px; }
.toolbar { display: flex; gap: 16px; align-items: center; margin-bottom: 16px; font-size: .85em; color: #71717a; }
table { width: 100%; background: #fff; border: 1px solid #d4d4d8; border-radius: 8px; border-collapse: collapse; }
th, td { padding: 10px 16px; border-bottom: 1px solid #e4e4e7; text-align: left; font-size: .85em; }
th { text-transform: uppercase; font-size: .7em; color: #71717a; letter-spacing: .5px; }
tr:last-child td { border-bottom: none; }
a { color: #7c3aed; text-decoration: none; }
a:hover { text-decoration: underline; }
td.num { color: #71717a; }
.empty { padding: 40px; text-align: center; color: #71717a; }
</style>
</head>
<body>
<div class="header">
<h1>{{.Bucket}}</h1>
<div class="path"><a href="/">/</a>{{range .Breadcrumbs}}<a href="/{{.Path}}">{{.Name}}</a>/{{end}}</div>
</div>
<div class="container">
<div class="toolbar">
{{if .Parent}}<a href="{{.Parent}}">&larr; up</a>{{end}}
<span>{{len .Dirs}} folders &middot; {{len .Files}} files here &middot; {{.TotalFiles}} files total &middot; {{.TotalSize}}</span>
</div>
{{if or .Dirs .Files}}
<table>
<tr><th>Name</th><th>Size</th><th>Files</th><th>Modified</th></tr>
{{range .Dirs}}<tr><td><a href="{{.Href}}">&#128193; {{.Name}}/</a></td><td class="num">{{.Size}}</td><td class="num">{{.FileCount}}</td><td class="num">{{.Modified}}</td></tr>
{{end}}{{range .Files}}<tr><td><a href="{{.Href}}">&#128196; {{.Name}}</a>{{if .IsJSON}} <a href="{{.ViewHref}}">[view]</a>{{end}}</td><td class="num">{{.Size}}</td><td class="num">1</td><td class="num">{{.Modified}}</td></tr>
{{end}}</table>
{{else}}<div class="empty">This folder is empty</div>{{end}}
</div>
</body>
</html>
`))

var viewerTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Name}}</title>
<style>
body { font-family: 'SF Mono', 'Fira Code', Consolas, monospace; background: #f4f4f6; color: #1e1e2e; margin: 0; }
.header { background: #5b4b8a; color: #fff; padding: 16px 24px; display: flex; gap: 16px; align-items: baseline; }
.header h1 { font-size: 1em; margin: 0; }
.header .meta { font-size: .8em; color: rgba(255,255,255,.7); }
.header a { color: #fff; font-size: .85em; }
pre { background: #fff; border: 1px solid #d4d4d8; border-radius: 8px; margin: 20px 24px; padding: 16px; overflow: auto; font-size: .85em; }
</style>
</head>
<body>
<div class="header">
<a href="{{.ParentHref}}">&larr; back</a>
<h1>{{.Name}}</h1>
<span class="meta">{{.Size}} &middot; {{.Modified}}</span>
{{if .DownloadURL}}<a href="{{.DownloadURL}}">download</a>{{end}}
</div>
<pre>{{.Content}}</pre>
</body>
</html>
`))
