package web

import "net/http"

// ServeDashboard serves the embedded dashboard page.
func ServeDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>VeilText Dashboard</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #0f1117; color: #e6e6e6; }
  header { padding: 16px 24px; background: #161a23; border-bottom: 1px solid #262b38; display: flex; align-items: center; gap: 12px; }
  header h1 { font-size: 18px; margin: 0; }
  #status { font-size: 13px; padding: 2px 10px; border-radius: 10px; background: #3a2020; color: #ff7b72; }
  #status.connected { background: #1d3324; color: #56d364; }
  main { padding: 24px; display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 16px; }
  .card { background: #161a23; border: 1px solid #262b38; border-radius: 8px; padding: 16px; }
  .card h2 { font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #8b949e; margin: 0 0 8px; }
  .card .value { font-size: 28px; font-weight: 600; }
  #events { grid-column: 1 / -1; max-height: 420px; overflow-y: auto; }
  .event { font-family: ui-monospace, monospace; font-size: 13px; padding: 6px 8px; border-bottom: 1px solid #20242f; }
  .event .kind { color: #79c0ff; }
  .event time { color: #8b949e; margin-right: 8px; }
</style>
</head>
<body>
<header>
  <h1>VeilText</h1>
  <span id="status">disconnected</span>
</header>
<main>
  <div class="card"><h2>Requests</h2><div class="value" id="requests">0</div></div>
  <div class="card"><h2>Findings</h2><div class="value" id="findings">0</div></div>
  <div class="card"><h2>Clients</h2><div class="value" id="clients">0</div></div>
  <div class="card" id="events"><h2>Live events</h2><div id="log"></div></div>
</main>
<script>
  let requests = 0, findings = 0;
  const statusEl = document.getElementById('status');
  const logEl = document.getElementById('log');

  function connect() {
    const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    const ws = new WebSocket(proto + '//' + location.host + '/ws');
    ws.onopen = () => { statusEl.textContent = 'connected'; statusEl.classList.add('connected'); };
    ws.onclose = () => {
      statusEl.textContent = 'disconnected';
      statusEl.classList.remove('connected');
      setTimeout(connect, 3000);
    };
    ws.onmessage = (msg) => {
      const event = JSON.parse(msg.data);
      if (event.type === 'request_log') {
        requests++;
        document.getElementById('requests').textContent = requests;
      } else if (event.type === 'detection') {
        findings += event.data.total_findings;
        document.getElementById('findings').textContent = findings;
        appendEvent(event);
      } else if (event.type === 'system_status') {
        document.getElementById('clients').textContent = event.data.connected_clients;
      }
    };
  }

  function appendEvent(event) {
    const row = document.createElement('div');
    row.className = 'event';
    const counts = Object.entries(event.data.kind_counts || {})
      .map(([kind, n]) => kind + '×' + n).join(' ');
    row.innerHTML = '<time>' + new Date(event.timestamp).toLocaleTimeString() + '</time>' +
      '<span class="kind">' + event.data.policy + '</span> ' + counts;
    logEl.prepend(row);
    while (logEl.children.length > 200) logEl.removeChild(logEl.lastChild);
  }

  connect();
</script>
</body>
</html>
`
