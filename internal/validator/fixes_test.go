package validator_test

import (
	"strings"
	"testing"

	"gameforge-server/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndFixAlreadyValid(t *testing.T) {
	doc := `<!DOCTYPE html><html><head></head><body><canvas></canvas></body></html>`
	res := validator.ValidateAndFix(doc)
	assert.True(t, res.IsValid)
	assert.Equal(t, doc, res.FixedHTML)
	assert.Empty(t, res.Errors)
}

func TestValidateAndFixWrapsMissingStructure(t *testing.T) {
	res := validator.ValidateAndFix("<div>hi</div>")
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	require.NotEmpty(t, res.FixedHTML)

	lower := strings.ToLower(res.FixedHTML)
	htmlIdx := strings.Index(lower, "<html")
	bodyIdx := strings.Index(lower, "<body")
	bodyCloseIdx := strings.Index(lower, "</body>")
	htmlCloseIdx := strings.Index(lower, "</html>")
	require.True(t, htmlIdx >= 0 && bodyIdx >= 0 && bodyCloseIdx >= 0 && htmlCloseIdx >= 0)
	// properly nested: <html> before <body>, </body> before </html>
	assert.Less(t, htmlIdx, bodyIdx)
	assert.Less(t, bodyIdx, bodyCloseIdx)
	assert.Less(t, bodyCloseIdx, htmlCloseIdx)
}

func TestValidateAndFixIdempotent(t *testing.T) {
	res := validator.ValidateAndFix("<div>hi</div>")
	require.True(t, res.IsValid)

	again := validator.ValidateAndFix(res.FixedHTML)
	assert.True(t, again.IsValid)
	assert.Equal(t, res.FixedHTML, again.FixedHTML)
}

func TestValidateAndFixKeepsDoctypeOutsideWrapper(t *testing.T) {
	res := validator.ValidateAndFix("<!DOCTYPE html><div>hi</div>")
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	lower := strings.ToLower(res.FixedHTML)
	assert.True(t, strings.HasPrefix(lower, "<!doctype html>"))
	assert.Less(t, strings.Index(lower, "<!doctype"), strings.Index(lower, "<html"))
}

func TestValidateAndFixInsertsBodyAfterHead(t *testing.T) {
	res := validator.ValidateAndFix(`<html><head><title>t</title></head><div>x</div></html>`)
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	lower := strings.ToLower(res.FixedHTML)
	assert.Less(t, strings.Index(lower, "</head>"), strings.Index(lower, "<body>"))
	assert.Less(t, strings.Index(lower, "</body>"), strings.Index(lower, "</html>"))
}

func TestValidateAndFixNormalizesVoidElements(t *testing.T) {
	res := validator.ValidateAndFix(`<img src="x.png">`)
	require.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Contains(t, res.FixedHTML, `<img src="x.png" />`)
}

func TestValidateAndFixCannotRepairUnclosedInlineTag(t *testing.T) {
	// Wrapping succeeds but re-validation still reports the stray span, so
	// no FixedHTML is returned.
	res := validator.ValidateAndFix("<div><span>hi</div>")
	assert.False(t, res.IsValid)
	assert.Empty(t, res.FixedHTML)
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "span") {
			found = true
		}
	}
	assert.True(t, found, "expected the unclosed span to survive repair, got %v", res.Errors)
}

func TestValidateAndFixEmptyInput(t *testing.T) {
	res := validator.ValidateAndFix("   ")
	assert.False(t, res.IsValid)
	assert.Empty(t, res.FixedHTML)
	assert.Contains(t, res.Errors, "HTML content is empty")
}
