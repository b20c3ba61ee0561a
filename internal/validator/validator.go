package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Result is the outcome of validating one HTML artifact.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// FixResult is the outcome of ValidateAndFix. FixedHTML is set only when
// the document is valid after automatic repair.
type FixResult struct {
	IsValid   bool     `json:"isValid"`
	FixedHTML string   `json:"fixedHtml,omitempty"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

// ValidationError carries the machine-checkable error/warning lists to
// callers that persist nothing on validation failure.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("html validation failed: %s", strings.Join(e.Errors, "; "))
}

// Void elements never participate in the open-tag stack.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Validate runs all checks over an untrusted HTML artifact. Malformed input
// is this function's expected domain: it never panics on it, it reports.
func Validate(htmlContent string) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}

	if strings.TrimSpace(htmlContent) == "" {
		res.Errors = append(res.Errors, "HTML content is empty")
		return res
	}

	lower := strings.ToLower(htmlContent)
	if !strings.Contains(lower, "<html") {
		res.Errors = append(res.Errors, "missing <html> tag")
	}
	if !strings.Contains(lower, "<body") {
		res.Errors = append(res.Errors, "missing <body> tag")
	}

	if unclosed := FindUnclosedTags(htmlContent); len(unclosed) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("unclosed tags: %s", strings.Join(unclosed, ", ")))
	}

	res.Errors = append(res.Errors, checkAttributeQuotes(htmlContent)...)

	if err := parseDocument(htmlContent); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("HTML parse error: %v", err))
	}

	res.Warnings = append(res.Warnings, checkInlineScripts(htmlContent)...)
	res.Warnings = append(res.Warnings, checkGameConventions(htmlContent)...)

	res.IsValid = len(res.Errors) == 0
	return res
}

// parseDocument attempts a full structural parse. The parser is forgiving,
// so a returned error means the input was badly broken; internal parser
// panics are folded into the error instead of escaping.
func parseDocument(htmlContent string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected parser failure: %v", r)
		}
	}()
	_, err = html.Parse(strings.NewReader(htmlContent))
	return err
}

type openTag struct {
	name string
}

// FindUnclosedTags scans tag tokens with a stack discipline and returns the
// deduplicated, alphabetically ordered set of tags left unclosed. Void
// elements do not affect the stack; orphan closing tags are ignored.
func FindUnclosedTags(htmlContent string) []string {
	var stack []openTag
	unclosed := map[string]bool{}

	for i := 0; i < len(htmlContent); {
		open := strings.IndexByte(htmlContent[i:], '<')
		if open < 0 {
			break
		}
		i += open

		// Comments and doctype/processing tokens carry no stack weight.
		if strings.HasPrefix(htmlContent[i:], "<!--") {
			end := strings.Index(htmlContent[i:], "-->")
			if end < 0 {
				break
			}
			i += end + 3
			continue
		}
		if strings.HasPrefix(htmlContent[i:], "<!") || strings.HasPrefix(htmlContent[i:], "<?") {
			end := strings.IndexByte(htmlContent[i:], '>')
			if end < 0 {
				break
			}
			i += end + 1
			continue
		}

		raw, next, ok := readTagToken(htmlContent, i)
		if !ok {
			break
		}
		i = next

		name, closing, selfClosing := parseTagHeader(raw)
		if name == "" || voidElements[name] {
			continue
		}

		if closing {
			// Search the stack from the top for the matching open tag.
			matchIdx := -1
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j].name == name {
					matchIdx = j
					break
				}
			}
			if matchIdx < 0 {
				continue // orphan closing tag, silently ignored
			}
			for j := len(stack) - 1; j > matchIdx; j-- {
				unclosed[stack[j].name] = true
			}
			stack = stack[:matchIdx]
			continue
		}

		if selfClosing {
			continue
		}

		stack = append(stack, openTag{name: name})

		// Raw-text elements swallow markup until their explicit close.
		if name == "script" || name == "style" {
			closeTok := "</" + name
			rest := strings.ToLower(htmlContent[i:])
			end := strings.Index(rest, closeTok)
			if end < 0 {
				break
			}
			i += end
		}
	}

	for _, t := range stack {
		unclosed[t.name] = true
	}

	names := make([]string, 0, len(unclosed))
	for n := range unclosed {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// readTagToken reads a tag starting at pos (which points at '<') through its
// closing '>', honoring quoted attribute values. Returns the raw token
// without the angle brackets and the index just past the '>'.
func readTagToken(s string, pos int) (raw string, next int, ok bool) {
	i := pos + 1
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			return s[pos+1 : i], i + 1, true
		}
	}
	return "", len(s), false
}

// parseTagHeader extracts the tag name and closing/self-closing flags from a
// raw tag token.
func parseTagHeader(raw string) (name string, closing, selfClosing bool) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", false, false
	}
	if t[0] == '/' {
		closing = true
		t = strings.TrimSpace(t[1:])
	}
	if strings.HasSuffix(t, "/") {
		selfClosing = true
	}
	end := 0
	for end < len(t) {
		c := t[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/' {
			break
		}
		end++
	}
	name = strings.ToLower(t[:end])
	// Names must start with a letter; anything else is not markup.
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z') {
		return "", false, false
	}
	return name, closing, selfClosing
}

var attrValueRe = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*("[^"]*"?|'[^']*'?|[^\s>]+)`)
var tagTokenRe = regexp.MustCompile(`<[^>]*>`)

// checkAttributeQuotes reports attribute values with unterminated quotes and
// unquoted values containing spaces or angle brackets. An unquoted value
// tokenizes up to the first whitespace, so a value that was meant to carry a
// space shows up as a stray bare word after it; that word is treated as part
// of the value.
func checkAttributeQuotes(htmlContent string) []string {
	var errs []string
	for _, tag := range tagTokenRe.FindAllString(htmlContent, -1) {
		for _, idx := range attrValueRe.FindAllStringSubmatchIndex(tag, -1) {
			attrName := tag[idx[2]:idx[3]]
			value := tag[idx[4]:idx[5]]
			if value == "" {
				continue
			}
			if value[0] == '"' || value[0] == '\'' {
				if len(value) < 2 || value[len(value)-1] != value[0] {
					errs = append(errs, fmt.Sprintf("attribute %q has an unterminated quoted value", attrName))
				}
				continue
			}
			if strings.ContainsAny(value, "<>") {
				errs = append(errs, fmt.Sprintf("attribute %q has an unquoted value containing an angle bracket", attrName))
				continue
			}
			if strayWordFollows(tag, idx[5]) {
				errs = append(errs, fmt.Sprintf("attribute %q has an unquoted value containing a space", attrName))
			}
		}
	}
	return errs
}

// strayWordFollows reports whether the tag token continues with a bare word
// that is neither a name=value attribute nor the tag close after position
// pos.
func strayWordFollows(tag string, pos int) bool {
	rest := strings.TrimLeft(tag[pos:], " \t\n\r")
	end := 0
	for end < len(rest) {
		c := rest[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '=' || c == '>' || c == '/' {
			break
		}
		end++
	}
	if end == 0 {
		return false
	}
	after := strings.TrimLeft(rest[end:], " \t\n\r")
	return !strings.HasPrefix(after, "=")
}

var (
	scriptBlockRe      = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	unclosedFunctionRe = regexp.MustCompile(`function\s*\w*\s*\([^)]*\)\s*$`)
	externalScriptRe   = regexp.MustCompile(`(?i)<(?:script|link|img|iframe|audio|video)[^>]+(?:src|href)\s*=\s*["']https?://`)
)

// checkInlineScripts flags unbalanced brace/paren counts and suspicious
// unclosed-function tails in inline script blocks. Heuristic only, so
// findings are warnings, never errors.
func checkInlineScripts(htmlContent string) []string {
	var warnings []string
	for idx, m := range scriptBlockRe.FindAllStringSubmatch(htmlContent, -1) {
		body := m[1]
		if strings.TrimSpace(body) == "" {
			continue
		}
		if n := strings.Count(body, "{") - strings.Count(body, "}"); n != 0 {
			warnings = append(warnings, fmt.Sprintf("script block %d has unbalanced curly braces (%+d)", idx+1, n))
		}
		if n := strings.Count(body, "(") - strings.Count(body, ")"); n != 0 {
			warnings = append(warnings, fmt.Sprintf("script block %d has unbalanced parentheses (%+d)", idx+1, n))
		}
		if unclosedFunctionRe.MatchString(strings.TrimSpace(body)) {
			warnings = append(warnings, fmt.Sprintf("script block %d appears to end with an unclosed function declaration", idx+1))
		}
	}
	return warnings
}

// checkGameConventions flags deviations from the game artifact conventions:
// games render on a canvas, award points through the retry-safe wrapper, and
// stay self-contained (no externally hosted scripts or media).
func checkGameConventions(htmlContent string) []string {
	var warnings []string
	lower := strings.ToLower(htmlContent)

	if !strings.Contains(lower, "<canvas") {
		warnings = append(warnings, "no <canvas> element found; games are expected to render on a canvas")
	}
	if strings.Contains(htmlContent, "awardPoints(") && !strings.Contains(htmlContent, "safeAwardPoints") {
		warnings = append(warnings, "direct awardPoints() call without the safeAwardPoints wrapper; score reports may be lost on transient failures")
	}
	if externalScriptRe.MatchString(htmlContent) {
		warnings = append(warnings, "externally hosted script or resource URL found; artifacts must be self-contained")
	}
	return warnings
}
