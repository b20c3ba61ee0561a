package validator

import (
	"regexp"
	"strings"
)

var doctypeRe = regexp.MustCompile(`(?i)<!doctype[^>]*>`)

// ValidateAndFix validates the artifact and, when invalid, attempts the
// fixed repair sequence: prepend a doctype, wrap in <html>, insert <body>,
// normalize self-closing slashes on void elements. FixedHTML is returned
// only if the repaired document passes full re-validation; otherwise the
// still-failing errors are surfaced and FixedHTML stays empty so the caller
// knows automatic repair did not succeed.
func ValidateAndFix(htmlContent string) FixResult {
	initial := Validate(htmlContent)
	if initial.IsValid {
		return FixResult{
			IsValid:   true,
			FixedHTML: htmlContent,
			Errors:    initial.Errors,
			Warnings:  initial.Warnings,
		}
	}
	if strings.TrimSpace(htmlContent) == "" {
		// Nothing to repair.
		return FixResult{IsValid: false, Errors: initial.Errors, Warnings: initial.Warnings}
	}

	fixed := htmlContent
	if !doctypeRe.MatchString(fixed) {
		fixed = "<!DOCTYPE html>\n" + fixed
	}
	fixed = wrapInHTML(fixed)
	fixed = insertBody(fixed)
	fixed = normalizeVoidElements(fixed)

	revalidated := Validate(fixed)
	if !revalidated.IsValid {
		return FixResult{IsValid: false, Errors: revalidated.Errors, Warnings: revalidated.Warnings}
	}
	return FixResult{
		IsValid:   true,
		FixedHTML: fixed,
		Errors:    revalidated.Errors,
		Warnings:  revalidated.Warnings,
	}
}

// wrapInHTML wraps the content in <html>...</html>, keeping any doctype
// outside the wrapper.
func wrapInHTML(content string) string {
	if strings.Contains(strings.ToLower(content), "<html") {
		return content
	}
	if loc := doctypeRe.FindStringIndex(content); loc != nil {
		head := content[:loc[1]]
		rest := content[loc[1]:]
		return head + "\n<html>" + rest + "\n</html>"
	}
	return "<html>" + content + "\n</html>"
}

var (
	headCloseRe = regexp.MustCompile(`(?i)</head>`)
	htmlOpenRe  = regexp.MustCompile(`(?i)<html[^>]*>`)
	htmlCloseRe = regexp.MustCompile(`(?i)</html>`)
)

// insertBody inserts <body>...</body> around the document content: the open
// tag goes after </head> when present, otherwise right after the opening
// <html> tag; the close tag goes before </html>, or at the very end when no
// closing tag exists.
func insertBody(content string) string {
	if strings.Contains(strings.ToLower(content), "<body") {
		return content
	}

	var withOpen string
	if loc := headCloseRe.FindStringIndex(content); loc != nil {
		withOpen = content[:loc[1]] + "\n<body>" + content[loc[1]:]
	} else if loc := htmlOpenRe.FindStringIndex(content); loc != nil {
		withOpen = content[:loc[1]] + "\n<body>" + content[loc[1]:]
	} else {
		withOpen = "<body>" + content
	}

	if loc := htmlCloseRe.FindStringIndex(withOpen); loc != nil {
		return withOpen[:loc[0]] + "</body>\n" + withOpen[loc[0]:]
	}
	return withOpen + "\n</body>"
}

var voidTagRe = regexp.MustCompile(`(?i)<(area|base|br|col|embed|hr|img|input|link|meta|param|source|track|wbr)((?:[^>"']|"[^"]*"|'[^']*')*)>`)

// normalizeVoidElements adds the missing self-closing slash on the fixed
// list of void elements.
func normalizeVoidElements(content string) string {
	return voidTagRe.ReplaceAllStringFunc(content, func(tag string) string {
		inner := strings.TrimSuffix(tag, ">")
		if strings.HasSuffix(strings.TrimSpace(inner), "/") {
			return tag
		}
		return inner + " />"
	})
}
