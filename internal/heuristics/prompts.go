package heuristics

import (
	"regexp"
	"strings"

	"codeplay/internal/runtime"
)

// GenericPrompt labels a read whose prompt text could not be recovered.
const GenericPrompt = "Input:"

// StdinPrompt labels a python program that reads sys.stdin directly.
const StdinPrompt = "Stdin Input:"

var (
	pyLabeledInput = regexp.MustCompile(`input\s*\(\s*(['"])((?:[^'"]|\\'|\\")*)['"]\s*\)`)
	pyAnyInput     = regexp.MustCompile(`input\s*\(`)
	pyStdin        = regexp.MustCompile(`sys\.stdin`)

	jsQuestion = regexp.MustCompile(`question\s*\(\s*(['"])((?:[^'"]|\\'|\\")*)['"]`)
	jsStdin    = regexp.MustCompile(`process\.stdin|readline`)

	javaScanner = regexp.MustCompile(`\.next(Line|Int|Double|Boolean)?\s*\(`)
	cppCin      = regexp.MustCompile(`cin\s*>>`)
	goScan      = regexp.MustCompile(`fmt\.Scan`)
	phpStdin    = regexp.MustCompile(`php://stdin|fgets`)
)

type promptRule func(code string) []string

// promptRules is the per-language dispatch table. Languages without an
// entry (html) never need input.
var promptRules = map[runtime.Language]promptRule{
	runtime.Python:     pythonPrompts,
	runtime.JavaScript: questionPrompts,
	runtime.TypeScript: questionPrompts,
	runtime.Java:       countPrompts(javaScanner),
	runtime.Cpp:        countPrompts(cppCin),
	runtime.Go:         countPrompts(goScan),
	runtime.PHP:        presencePrompt(phpStdin),
}

// Prompts returns the ordered prompt labels a user must fill before running
// code. The result depends only on its arguments.
func Prompts(lang runtime.Language, code string) []string {
	if code == "" {
		return []string{}
	}
	rule, ok := promptRules[lang]
	if !ok {
		return []string{}
	}
	return rule(code)
}

// RequiresInput reports whether code is expected to read stdin.
func RequiresInput(lang runtime.Language, code string) bool {
	return len(Prompts(lang, code)) > 0
}

// JoinStdin builds the stdin stream: one line per prompt, in prompt order,
// with missing values sent as empty lines.
func JoinStdin(prompts []string, values map[int]string) string {
	lines := make([]string, len(prompts))
	for i := range prompts {
		lines[i] = values[i]
	}
	return strings.Join(lines, "\n")
}

func pythonPrompts(code string) []string {
	prompts := literalLabels(pyLabeledInput, code)

	for extra := len(pyAnyInput.FindAllStringIndex(code, -1)) - len(prompts); extra > 0; extra-- {
		prompts = append(prompts, GenericPrompt)
	}

	if len(prompts) == 0 && pyStdin.MatchString(code) {
		prompts = append(prompts, StdinPrompt)
	}
	return prompts
}

func questionPrompts(code string) []string {
	prompts := literalLabels(jsQuestion, code)
	if len(prompts) == 0 && jsStdin.MatchString(code) {
		prompts = append(prompts, GenericPrompt)
	}
	return prompts
}

// literalLabels returns the quoted literal captured by re, in text order.
// The closing quote must match the opening one.
func literalLabels(re *regexp.Regexp, code string) []string {
	prompts := []string{}
	for _, m := range re.FindAllStringSubmatchIndex(code, -1) {
		quote := code[m[2]:m[3]]
		closing := code[m[5] : m[5]+1]
		if closing != quote {
			continue
		}
		prompts = append(prompts, code[m[4]:m[5]])
	}
	return prompts
}

func countPrompts(re *regexp.Regexp) promptRule {
	return func(code string) []string {
		n := len(re.FindAllStringIndex(code, -1))
		prompts := make([]string, n)
		for i := range prompts {
			prompts[i] = GenericPrompt
		}
		return prompts
	}
}

func presencePrompt(re *regexp.Regexp) promptRule {
	return func(code string) []string {
		if re.MatchString(code) {
			return []string{GenericPrompt}
		}
		return []string{}
	}
}
