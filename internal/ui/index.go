package ui

import "html/template"

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Drive WebDAV Stress</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 1000px; margin: 0 auto; background: white; padding: 30px; border-radius: 12px; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        h1 { color: #003d8f; margin-top: 0; }
        fieldset { border: 1px solid #e0e0e0; border-radius: 8px; margin-bottom: 15px; }
        label { display: inline-block; min-width: 90px; }
        input, select { margin: 4px 0; padding: 4px; }
        button { background: #003d8f; color: white; border: none; padding: 8px 16px; border-radius: 6px; cursor: pointer; margin-right: 6px; }
        button.secondary { background: #888; }
        #log { font-family: monospace; white-space: pre-wrap; background: #2d2d2d; color: #00ff00; padding: 15px; border-radius: 8px; height: 360px; overflow-y: auto; font-size: 0.85em; }
        table { width: 100%; border-collapse: collapse; margin-top: 10px; font-size: 0.9em; }
        th, td { border: 1px solid #ddd; padding: 6px; text-align: left; }
        th { background-color: #f2f2f2; }
    </style>
</head>
<body>
<div class="container">
    <h1>Drive WebDAV Stress</h1>
    <fieldset>
        <legend>Run</legend>
        <label for="kind">Kind</label>
        <select id="kind"><option value="stress">stress</option><option value="sizes">file sizes</option></select><br>
        <label for="nodes">Nodes</label>
        <input id="nodes" placeholder="comma separated, empty for all" size="40"><br>
        <label for="url">Ad-hoc URL</label>
        <input id="url" placeholder="https://..." size="40">
        <input id="user" placeholder="user">
        <input id="pass" type="password" placeholder="app password">
    </fieldset>
    <button id="start">Start</button>
    <button id="cancel" class="secondary">Cancel</button>
    <a id="download" href="/report/download" style="display:none">Download report</a>
    <h2>Results</h2>
    <table><thead><tr><th>Node</th><th>Result</th></tr></thead><tbody id="results"></tbody></table>
    <h2>Log</h2>
    <div id="log"></div>
</div>
<script>
const log = document.getElementById('log');
function append(line) {
    log.textContent += line + '\n';
    log.scrollTop = log.scrollHeight;
}
const events = new EventSource('/events');
events.onmessage = e => append(e.data);
events.addEventListener('result', e => {
    const data = JSON.parse(e.data);
    const body = document.getElementById('results');
    body.innerHTML = '';
    for (const n of (data.Nodes || [])) {
        const tr = document.createElement('tr');
        tr.innerHTML = '<td></td><td style="font-family:monospace"></td>';
        tr.children[0].textContent = n.node;
        tr.children[1].textContent = n.line;
        body.appendChild(tr);
    }
    for (const r of (data.SizeRows || [])) {
        const tr = document.createElement('tr');
        tr.innerHTML = '<td></td><td style="font-family:monospace"></td>';
        tr.children[0].textContent = r.node;
        tr.children[1].textContent = r.line;
        body.appendChild(tr);
    }
    if (data.Completed) {
        document.getElementById('download').style.display = 'inline';
    }
});
document.getElementById('start').onclick = async () => {
    const nodes = document.getElementById('nodes').value.split(',').map(s => s.trim()).filter(Boolean);
    const req = {
        kind: document.getElementById('kind').value,
        nodes: nodes,
        url: document.getElementById('url').value,
        user: document.getElementById('user').value,
        pass: document.getElementById('pass').value,
    };
    const resp = await fetch('/run', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(req)});
    if (!resp.ok) {
        append('Error: ' + await resp.text());
    }
};
document.getElementById('cancel').onclick = () => fetch('/run/cancel', {method: 'POST'});
</script>
</body>
</html>
`))
