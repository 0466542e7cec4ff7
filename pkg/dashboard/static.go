package dashboard

// getStaticAsset returns a static asset by name.
// Returns the content, content type, and whether the asset was found.
func getStaticAsset(name string) (content string, contentType string, ok bool) {
	switch name {
	case "style.css":
		return cssStyles, "text/css", true
	case "app.js":
		return jsApp, "application/javascript", true
	default:
		return "", "", false
	}
}

const cssStyles = `
:root {
    --color-bg: #111827;
    --color-card: #1f2937;
    --color-border: #374151;
    --color-text: #f9fafb;
    --color-muted: #9ca3af;
    --color-accent: #3b82f6;
    --color-current: #f59e0b;
}

body {
    margin: 0;
    background: var(--color-bg);
    color: var(--color-text);
    font-family: system-ui, -apple-system, sans-serif;
}

nav {
    display: flex;
    gap: 1.5rem;
    align-items: center;
    padding: 1rem 2rem;
    background: var(--color-card);
    border-bottom: 1px solid var(--color-border);
}

nav a { color: var(--color-muted); text-decoration: none; }
nav a.active, nav a:hover { color: var(--color-text); }
nav .brand { font-weight: 700; color: var(--color-text); }

main { padding: 1.5rem 2rem; }

.cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; }
.card { background: var(--color-card); border: 1px solid var(--color-border); border-radius: 0.5rem; padding: 1rem 1.25rem; }
.card .label { color: var(--color-muted); font-size: 0.85rem; }
.card .value { font-size: 1.75rem; font-weight: 700; margin-top: 0.25rem; }

table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid var(--color-border); }
th { color: var(--color-muted); font-weight: 500; font-size: 0.85rem; }
td a { color: var(--color-accent); }

.mono { font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; }
.memory td { text-align: right; }
.memory td.addr { color: var(--color-muted); }
.memory td.current { color: var(--color-current); font-weight: 700; }
.empty { color: var(--color-muted); padding: 2rem 0; }
`

const jsApp = `
(function () {
    if (window.location.pathname !== '/') return;
    setInterval(async function () {
        try {
            const resp = await fetch('/api/status');
            const data = await resp.json();
            for (const key of ['evals', 'resumes', 'checkpoints', 'failures', 'uptime']) {
                const el = document.getElementById(key);
                if (el) el.textContent = data[key];
            }
        } catch (e) {
            console.error('Failed to fetch status:', e);
        }
    }, 5000);
})();
`
