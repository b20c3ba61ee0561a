package validator

import (
	"fmt"
	"html"
)

// ErrorPageHTML returns a complete, self-contained HTML document presenting
// the given error with a retry control. The serving boundary substitutes it
// for an artifact that fails validation so an embedding iframe never shows a
// broken frame.
func ErrorPageHTML(message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>Game unavailable</title>
<style>
  body { font-family: system-ui, sans-serif; background: #111; color: #eee;
         display: flex; align-items: center; justify-content: center;
         height: 100vh; margin: 0; }
  .panel { text-align: center; max-width: 28rem; padding: 2rem; }
  .panel h1 { font-size: 1.25rem; }
  .panel p { color: #aaa; }
  .panel button { padding: 0.5rem 1.5rem; border: 0; border-radius: 0.5rem;
                  background: #7c3aed; color: #fff; cursor: pointer; }
</style>
</head>
<body>
<div class="panel">
  <h1>This game could not be loaded</h1>
  <p>%s</p>
  <button onclick="window.location.reload()">Try again</button>
</div>
</body>
</html>
`, html.EscapeString(message))
}
