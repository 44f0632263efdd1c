package api

import "html/template"

var templateFuncs = template.FuncMap{
	"cardClass": func(critical bool) string {
		if critical {
			return "card critical"
		}
		return "card"
	},
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>HydraMind ETP</title>
<style>
body { font-family: sans-serif; background: #0b1220; color: #e2e8f0; margin: 0; padding: 24px; }
nav button, .actions button { margin-right: 8px; }
.grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 12px; }
.card { background: #111a2e; border-radius: 8px; padding: 12px; }
.card.critical { border: 2px solid #ef4444; }
.alert { color: #ef4444; font-weight: bold; }
table { border-collapse: collapse; }
td, th { padding: 2px 8px; text-align: right; }
</style>
</head>
<body>
<nav>
  <button onclick="post('/api/view', {view: 'landing'})">Home</button>
  <button onclick="post('/api/view', {view: 'dashboard'})">Dashboard</button>
</nav>
{{if eq .View "landing"}}
<section id="landing">
  <h1>HydraMind</h1>
  <p>Live effluent treatment monitoring with simulated fault scenarios.</p>
  <button onclick="post('/api/view', {view: 'dashboard'})">Open dashboard</button>
</section>
{{else}}
<section id="dashboard">
  {{with .Snapshot}}
  <h2 id="status" class="{{if $.Snapshot.Alert}}alert{{end}}">{{$.Presentation.StatusLabel}}</h2>
  <p id="link">{{if .Online}}SCADA link online{{else}}{{.Status}}{{end}}</p>
  <div class="grid">
    <div class="{{cardClass $.Presentation.Flags.PH}}">pH <b id="ph">{{printf "%.1f" .Metrics.PH}}</b></div>
    <div class="card">COD <b id="cod">{{printf "%.0f" .Metrics.COD}}</b> mg/L</div>
    <div class="{{cardClass $.Presentation.Flags.Phenol}}">Phenol <b id="phenol">{{printf "%.2f" .Metrics.Phenol}}</b> mg/L</div>
    <div class="{{cardClass $.Presentation.Flags.Oil}}">Oil &amp; Grease <b id="oil">{{printf "%.1f" .Metrics.Oil}}</b> mg/L</div>
    <div class="{{cardClass $.Presentation.Flags.Flow}}">Flow <b id="flow">{{printf "%.1f" .Metrics.Flow}}</b> m3/hr</div>
    <div class="card">Dosage <b id="dosage">{{printf "%.2f" .Metrics.Dosage}}</b> mL/min</div>
  </div>
  <p id="insight">{{$.Presentation.Insight}}</p>
  <p>Control: <span id="mode">{{$.Presentation.ModeLabel}}</span>
    <button onclick="toggleMode()">Toggle</button></p>
  <div class="actions">
    <button onclick="post('/api/scenario', {scenario: 'DESALTER_FAIL'})">Desalter failure</button>
    <button onclick="post('/api/scenario', {scenario: 'SOUR_WATER_FAIL'})">Sour water failure</button>
    <button onclick="post('/api/scenario', {scenario: 'RESET'})">Reset</button>
  </div>
  <table>
    <thead><tr><th>Time</th><th>pH</th><th>COD</th><th>Dosage</th></tr></thead>
    <tbody id="history">
    {{range .History}}<tr><td>{{.Time}}</td><td>{{printf "%.2f" .PH}}</td><td>{{printf "%.1f" .COD}}</td><td>{{printf "%.2f" .Dosage}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</section>
{{end}}
<script>
function post(path, body) {
  fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)});
}
var currentView = "{{.View}}";
var currentMode = "{{.Mode}}";
function toggleMode() {
  post('/api/mode', {mode: currentMode === 'auto' ? 'manual' : 'auto'});
}
var ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = function (ev) {
  var msg = JSON.parse(ev.data);
  if (msg.type !== 'snapshot') return;
  var st = msg.payload;
  if (st.view !== currentView) { location.reload(); return; }
  currentMode = st.mode;
  if (st.view !== 'dashboard') return;
  var m = st.snapshot.metrics;
  document.getElementById('ph').textContent = m.ph.toFixed(1);
  document.getElementById('cod').textContent = m.cod.toFixed(0);
  document.getElementById('phenol').textContent = m.phenol.toFixed(2);
  document.getElementById('oil').textContent = m.oil.toFixed(1);
  document.getElementById('flow').textContent = m.flow.toFixed(1);
  document.getElementById('dosage').textContent = m.dosage.toFixed(2);
  document.getElementById('status').textContent = st.presentation.status_label;
  document.getElementById('status').className = st.snapshot.alert ? 'alert' : '';
  document.getElementById('link').textContent = st.snapshot.online ? 'SCADA link online' : st.snapshot.status;
  document.getElementById('insight').textContent = st.presentation.insight;
  document.getElementById('mode').textContent = st.presentation.mode_label;
  var rows = '';
  (st.snapshot.history || []).forEach(function (p) {
    rows += '<tr><td>' + p.time + '</td><td>' + p.ph.toFixed(2) + '</td><td>' + p.cod.toFixed(1) + '</td><td>' + p.dosage.toFixed(2) + '</td></tr>';
  });
  document.getElementById('history').innerHTML = rows;
};
</script>
</body>
</html>
`
