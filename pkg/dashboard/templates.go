package dashboard

// HTML templates for the dashboard pages, parsed at startup.

const layoutTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>intcode</title>
    <link rel="stylesheet" href="/static/style.css">
</head>
<body>
    <nav>
        <a href="/" class="brand">intcode</a>
        <a href="/" {{if eq .PageName "home"}}class="active"{{end}}>Overview</a>
        <a href="/checkpoints" {{if eq .PageName "checkpoints"}}class="active"{{end}}>Checkpoints</a>
    </nav>
    <main>
        {{.Content}}
    </main>
    <script src="/static/app.js"></script>
</body>
</html>`

const homeTemplate = `
<div class="cards">
    <div class="card"><div class="label">Evaluations</div><div class="value" id="evals">{{formatNumber .Stats.Evals}}</div></div>
    <div class="card"><div class="label">Resumes</div><div class="value" id="resumes">{{formatNumber .Stats.Resumes}}</div></div>
    <div class="card"><div class="label">Checkpoints saved</div><div class="value" id="checkpoints">{{formatNumber .Stats.Checkpoints}}</div></div>
    <div class="card"><div class="label">Failures</div><div class="value" id="failures">{{formatNumber .Stats.Failures}}</div></div>
    <div class="card"><div class="label">Uptime</div><div class="value" id="uptime">{{formatDuration .Stats.Uptime}}</div></div>
    <div class="card"><div class="label">Heap</div><div class="value">{{formatBytes .MemAlloc}}</div></div>
</div>

<h2>Recent checkpoints</h2>
{{if not .Stats.HasStore}}
<p class="empty">No checkpoint store configured.</p>
{{else if .Recent}}
<table>
    <tr><th>ID</th><th>Program</th><th>IP</th><th>Inputs</th><th>Outputs</th><th>Created</th></tr>
    {{range .Recent}}
    <tr>
        <td class="mono"><a href="/checkpoints/{{.ID}}">{{truncateHash .ID.String 8}}</a></td>
        <td class="mono"><a href="/checkpoints?program={{.Program}}">{{.Program.Short}}</a></td>
        <td>{{.IP}}</td>
        <td>{{.UsedInput}}</td>
        <td>{{.Outputs}}</td>
        <td>{{formatTime .CreatedAt}}</td>
    </tr>
    {{end}}
</table>
{{else}}
<p class="empty">No checkpoints yet.</p>
{{end}}
<p class="mono">intcode {{.Version}}</p>
`

const checkpointsTemplate = `
<h1>Checkpoints{{if not .Program.IsZero}} of <span class="mono">{{.Program.Short}}</span>{{end}}</h1>
{{if .Checkpoints}}
<table>
    <tr><th>ID</th><th>Program</th><th>IP</th><th>Inputs</th><th>Outputs</th><th>Words</th><th>Created</th></tr>
    {{range .Checkpoints}}
    <tr>
        <td class="mono"><a href="/checkpoints/{{.ID}}">{{.ID}}</a></td>
        <td class="mono"><a href="/checkpoints?program={{.Program}}">{{.Program.Short}}</a></td>
        <td>{{.IP}}</td>
        <td>{{.UsedInput}}</td>
        <td>{{.Outputs}}</td>
        <td>{{formatNumber .Words}}</td>
        <td>{{formatTime .CreatedAt}}</td>
    </tr>
    {{end}}
</table>
{{else}}
<p class="empty">No checkpoints.</p>
{{end}}
`

const checkpointTemplate = `
<h1 class="mono">{{.ID}}</h1>
<div class="cards">
    <div class="card"><div class="label">Resume address</div><div class="value">{{.Checkpoint.IP}}</div></div>
    <div class="card"><div class="label">Inputs consumed</div><div class="value">{{.Checkpoint.UsedInput}}</div></div>
    <div class="card"><div class="label">Memory</div><div class="value">{{formatNumber (len .Checkpoint.Memory)}} words</div></div>
    <div class="card"><div class="label">Created</div><div class="value">{{formatTime .Checkpoint.CreatedAt}}</div></div>
</div>

<h2>Program</h2>
<p class="mono"><a href="/checkpoints?program={{.Checkpoint.Program}}">{{.Checkpoint.Program}}</a></p>

<h2>Output</h2>
{{if .Checkpoint.Output}}
<p class="mono" id="output">{{range $i, $v := .Checkpoint.Output}}{{if $i}}, {{end}}{{$v}}{{end}}</p>
{{else}}
<p class="empty">No output before suspension.</p>
{{end}}

<h2>Memory</h2>
<table class="memory mono">
    {{range .Rows}}
    <tr>
        <td class="addr">{{.Addr}}</td>
        {{range .Words}}<td{{if .Current}} class="current"{{end}}>{{.Value}}</td>{{end}}
    </tr>
    {{end}}
</table>

<p><a href="/api/checkpoints/{{.ID}}?source=1">Transpiled source (JSON)</a></p>
`
