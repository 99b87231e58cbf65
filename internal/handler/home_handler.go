package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HomeHandler serves the landing page.
type HomeHandler struct{}

// NewHomeHandler creates a new home handler.
func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Home renders two plain forms that post to /shorten and /bulk-process.
// The page is static and script-free; it never echoes stored labels.
func (h *HomeHandler) Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePage))
}

const homePage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>LinkTrack</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #16213e;
            color: #fff;
            display: flex;
            justify-content: center;
            padding: 40px 0;
        }
        .container { max-width: 600px; width: 90%; }
        h1 { font-size: 2.5rem; margin-bottom: 8px; color: #00d2ff; }
        .subtitle { color: #94a3b8; margin-bottom: 30px; }
        .card {
            background: rgba(255, 255, 255, 0.05);
            border: 1px solid rgba(255, 255, 255, 0.1);
            border-radius: 16px;
            padding: 30px;
            margin-bottom: 24px;
        }
        h2 { font-size: 1.2rem; margin-bottom: 16px; }
        label { display: block; margin: 12px 0 6px; color: #94a3b8; font-size: 0.9rem; }
        input, textarea {
            width: 100%;
            padding: 12px 14px;
            border: 1px solid rgba(255, 255, 255, 0.15);
            border-radius: 10px;
            background: rgba(255, 255, 255, 0.05);
            color: #fff;
            font-size: 1rem;
        }
        textarea { min-height: 140px; font-family: monospace; }
        button {
            margin-top: 18px;
            width: 100%;
            padding: 14px;
            border: none;
            border-radius: 10px;
            background: #3a7bd5;
            color: #fff;
            font-size: 1rem;
            cursor: pointer;
        }
        .footer { text-align: center; color: #64748b; font-size: 0.85rem; }
        .footer a { color: #94a3b8; }
    </style>
</head>
<body>
    <div class="container">
        <h1>LinkTrack</h1>
        <p class="subtitle">Short links with click tracking</p>

        <div class="card">
            <h2>Shorten a link</h2>
            <form method="post" action="/shorten">
                <label for="url">Destination URL</label>
                <input type="url" id="url" name="url" placeholder="https://example.com/landing" required>
                <label for="custom_code">Custom code (optional)</label>
                <input type="text" id="custom_code" name="custom_code" maxlength="32" pattern="[A-Za-z0-9_\-]+">
                <label for="custom_name">Name (optional)</label>
                <input type="text" id="custom_name" name="custom_name" maxlength="100">
                <label for="campaign">Campaign (optional)</label>
                <input type="text" id="campaign" name="campaign" maxlength="100">
                <button type="submit">Shorten</button>
            </form>
        </div>

        <div class="card">
            <h2>Bulk import</h2>
            <form method="post" action="/bulk-process">
                <label for="urls">One URL per line</label>
                <textarea id="urls" name="urls" required></textarea>
                <label for="bulk_campaign">Campaign (optional)</label>
                <input type="text" id="bulk_campaign" name="campaign" maxlength="100">
                <button type="submit">Import</button>
            </form>
        </div>

        <div class="footer">
            <a href="/stats">Stats</a> · <a href="/stats/campaigns">Campaigns</a> · <a href="/links">Recent links</a> · <a href="/health">Status</a>
        </div>
    </div>
</body>
</html>`
