package heuristics

import (
	"regexp"
	"strconv"
	"strings"

	"codeplay/internal/runtime"
)

// ErrorAnalysis is what can be recovered from a toolchain's stderr.
type ErrorAnalysis struct {
	Friendly string `json:"friendly"`
	IsHint   bool   `json:"is_hint"`
	Line     int    `json:"line,omitempty"` // 1-based, 0 when unknown
}

// Signature maps a lowercase stderr fragment set to a friendly hint. All
// fragments must be present.
type Signature struct {
	Contains []string
	Hint     string
}

type errorRule struct {
	line       *regexp.Regexp
	signatures []Signature
}

var (
	colonLineCol = regexp.MustCompile(`:(\d+):\d+`)

	jsSignatures = []Signature{
		{[]string{"unexpected token"}, "JavaScript Syntax Error: Check for missing brackets }, parentheses ), or semicolons ;."},
		{[]string{"syntaxerror"}, "JavaScript Syntax Error: Check for missing brackets }, parentheses ), or semicolons ;."},
		{[]string{"referenceerror"}, "Reference Error: You are using a variable that doesn't exist."},
	}
)

// errorRules is the per-language dispatch table. Signatures are tried in
// order and the first match wins.
var errorRules = map[runtime.Language]errorRule{
	runtime.Python: {
		line: regexp.MustCompile(`File ".*", line (\d+)`),
		signatures: []Signature{
			{[]string{"syntaxerror"}, "Python Syntax Error: Check for missing colons (:), mismatched parentheses, or incorrect indentation."},
			{[]string{"nameerror"}, "Python Name Error: You are trying to use a variable or function that hasn't been defined yet."},
			{[]string{"indentationerror"}, "Indentation Error: Python relies on indentation. Ensure your code blocks are aligned correctly."},
		},
	},
	runtime.JavaScript: {line: colonLineCol, signatures: jsSignatures},
	runtime.TypeScript: {line: colonLineCol, signatures: jsSignatures},
	runtime.Java: {
		line: regexp.MustCompile(`Main\.java:(\d+):`),
		signatures: []Signature{
			{[]string{"cannot find symbol"}, "Java Error: Compiler cannot find a variable or class. Check spelling or missing imports."},
			{[]string{"expected"}, "Java Syntax Error: Usually missing a semicolon ; or a closing brace }."},
			{[]string{"class", "public", "should be declared in a file"}, "Class Name Error: In this environment, ensure your public class is named 'Main'."},
		},
	},
	runtime.Cpp: {
		line: colonLineCol,
		signatures: []Signature{
			{[]string{"expected"}, "C++ Syntax Error: Likely missing a semicolon ; or incorrect bracket usage."},
			{[]string{"undeclared identifier"}, "Undeclared Identifier: You forgot to declare a variable or include a necessary library (like <iostream>)."},
		},
	},
	runtime.PHP: {line: regexp.MustCompile(`on line (\d+)`)},
	runtime.Go:  {line: regexp.MustCompile(`:(\d+):`)},
}

// Analyze inspects stderr produced by running code in lang. It returns nil
// when neither a hint nor a line number could be found.
func Analyze(lang runtime.Language, stderr string) *ErrorAnalysis {
	if stderr == "" {
		return nil
	}
	rule, ok := errorRules[lang]
	if !ok {
		return nil
	}

	analysis := ErrorAnalysis{Line: extractLine(rule.line, stderr)}

	lower := strings.ToLower(stderr)
	for _, sig := range rule.signatures {
		if containsAll(lower, sig.Contains) {
			analysis.Friendly = sig.Hint
			analysis.IsHint = true
			break
		}
	}

	if analysis.Friendly == "" && analysis.Line == 0 {
		return nil
	}
	return &analysis
}

// extractLine returns the first line number captured by re, or 0.
func extractLine(re *regexp.Regexp, stderr string) int {
	if re == nil {
		return 0
	}
	m := re.FindStringSubmatch(stderr)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func containsAll(s string, fragments []string) bool {
	for _, f := range fragments {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return true
}
