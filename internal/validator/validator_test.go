package validator_test

import (
	"strings"
	"testing"

	"gameforge-server/internal/validator"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmptyContent(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		res := validator.Validate(input)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors, "HTML content is empty")
	}
}

func TestValidateMissingStructuralTags(t *testing.T) {
	res := validator.Validate("<div>hi</div>")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "missing <html> tag")
	assert.Contains(t, res.Errors, "missing <body> tag")
}

func TestValidateWellFormedDocument(t *testing.T) {
	doc := `<!DOCTYPE html>
<html>
<head><title>Pong</title></head>
<body>
<canvas id="game"></canvas>
<script>function draw() { return 1; }</script>
</body>
</html>`
	res := validator.Validate(doc)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestFindUnclosedTags(t *testing.T) {
	t.Run("balanced tags with void elements report nothing", func(t *testing.T) {
		doc := `<html><body><p>hi<br><img src="x.png"><input type="text"></p></body></html>`
		assert.Empty(t, validator.FindUnclosedTags(doc))
	})

	t.Run("stray inline tag is reported by name", func(t *testing.T) {
		unclosed := validator.FindUnclosedTags("<div><span>hi</div>")
		assert.Equal(t, []string{"span"}, unclosed)
	})

	t.Run("orphan closing tag is silently ignored", func(t *testing.T) {
		assert.Empty(t, validator.FindUnclosedTags("<div>hi</span></div>"))
	})

	t.Run("tags left open at end of scan are reported", func(t *testing.T) {
		unclosed := validator.FindUnclosedTags("<div><section>hi")
		assert.ElementsMatch(t, []string{"div", "section"}, unclosed)
	})

	t.Run("duplicate unclosed tags are deduplicated", func(t *testing.T) {
		unclosed := validator.FindUnclosedTags("<div><div><div>")
		assert.Equal(t, []string{"div"}, unclosed)
	})

	t.Run("angle brackets inside scripts do not confuse the scanner", func(t *testing.T) {
		doc := `<html><body><script>if (a < b) { draw(); }</script></body></html>`
		assert.Empty(t, validator.FindUnclosedTags(doc))
	})
}

func TestValidateAttributeQuotes(t *testing.T) {
	t.Run("unterminated double quote", func(t *testing.T) {
		res := validator.Validate(`<html><body><div class="foo>bar</div></body></html>`)
		assert.False(t, res.IsValid)
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, "unterminated quoted value") {
				found = true
			}
		}
		assert.True(t, found, "expected an unterminated-quote error, got %v", res.Errors)
	})

	t.Run("unquoted value with angle bracket", func(t *testing.T) {
		res := validator.Validate(`<html><body><div title=a<b>hi</div></body></html>`)
		assert.False(t, res.IsValid)
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, "angle bracket") {
				found = true
			}
		}
		assert.True(t, found, "expected an angle-bracket error, got %v", res.Errors)
	})

	t.Run("unquoted value with a space", func(t *testing.T) {
		res := validator.Validate(`<html><body><canvas></canvas><div title=hello world>x</div></body></html>`)
		assert.False(t, res.IsValid)
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, "unquoted value containing a space") {
				found = true
			}
		}
		assert.True(t, found, "expected an unquoted-space error, got %v", res.Errors)
	})

	t.Run("unquoted value followed by another attribute is fine", func(t *testing.T) {
		res := validator.Validate(`<html><body><canvas></canvas><div title=hello data-x="1">x</div></body></html>`)
		assert.True(t, res.IsValid, "errors: %v", res.Errors)
	})
}

func TestValidateScriptHeuristics(t *testing.T) {
	doc := `<html><body><canvas></canvas><script>function start() { if (x) { go(); }</script></body></html>`
	res := validator.Validate(doc)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "unbalanced curly braces") {
			found = true
		}
	}
	assert.True(t, found, "expected an unbalanced-brace warning, got %v", res.Warnings)
}

func TestValidateGameConventions(t *testing.T) {
	t.Run("missing canvas", func(t *testing.T) {
		res := validator.Validate(`<html><body><p>hi</p></body></html>`)
		found := false
		for _, w := range res.Warnings {
			if strings.Contains(w, "canvas") {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("direct awardPoints call", func(t *testing.T) {
		doc := `<html><body><canvas></canvas><script>awardPoints(10);</script></body></html>`
		res := validator.Validate(doc)
		found := false
		for _, w := range res.Warnings {
			if strings.Contains(w, "safeAwardPoints") {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("external script source", func(t *testing.T) {
		doc := `<html><body><canvas></canvas><script src="https://cdn.example.com/lib.js"></script></body></html>`
		res := validator.Validate(doc)
		found := false
		for _, w := range res.Warnings {
			if strings.Contains(w, "self-contained") {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestErrorPageIsValidAndEscaped(t *testing.T) {
	page := validator.ErrorPageHTML(`generation failed: <script>alert(1)</script>`)
	res := validator.Validate(page)
	assert.True(t, res.IsValid, "fallback page must always validate, errors: %v", res.Errors)
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "Try again")
}
