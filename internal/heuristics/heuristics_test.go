package heuristics

import (
	"reflect"
	"strings"
	"testing"

	"codeplay/internal/runtime"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		want   runtime.Language
		wantOK bool
	}{
		{"empty", "", "", false},
		{"whitespace", "  \n\t ", "", false},
		{"python def", "def main():\n    pass", runtime.Python, true},
		{"cpp include", "#include <iostream>\nint x;", runtime.Cpp, true},
		{"java class", "public class Main {}", runtime.Java, true},
		{"html doctype", "<!DOCTYPE html><p>hi</p>", runtime.HTML, true},
		{"go package", "package main\n\nfunc init() {}", runtime.Go, true},
		{"php tag", "<?php echo 1;", runtime.PHP, true},
		{"js console", "console.log(1)", runtime.JavaScript, true},
		{"ts annotation", "let n: number = 3", runtime.TypeScript, true},
		{"go before javascript", "package main\n// console.log", runtime.Go, true},
		{"python wins over go", "package main\nprint(1)", runtime.Python, true},
		{"const is javascript before interface", "const x = 1\ninterface Foo {}", runtime.JavaScript, true},
		{"no marker", "SELECT 1;", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.code)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Detect(%q) = (%q, %v), want (%q, %v)", tt.code, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDetectionTable_GoPrecedesJavaScript(t *testing.T) {
	index := func(sub string) int {
		for i, m := range DetectionTable {
			if m.Substring == sub {
				return i
			}
		}
		t.Fatalf("marker %q missing from table", sub)
		return -1
	}
	if index("package main") > index("console.log") {
		t.Error(`"package main" must precede "console.log" in the detection table`)
	}
	if lang, _ := Detect("package main\nconsole.log"); lang != runtime.Go {
		t.Errorf("Detect = %q, want go", lang)
	}
}

func TestPrompts(t *testing.T) {
	tests := []struct {
		name string
		lang runtime.Language
		code string
		want []string
	}{
		{"python labeled", runtime.Python, `name = input("Enter name:")`, []string{"Enter name:"}},
		{"python single quotes", runtime.Python, `x = input('Age? ')`, []string{"Age? "}},
		{"python bare", runtime.Python, `x = input()`, []string{GenericPrompt}},
		{"python mixed order", runtime.Python, "a = input(\"A:\")\nb = input()\nc = input('C:')", []string{"A:", "C:", GenericPrompt}},
		{"python none", runtime.Python, `print("hello")`, []string{}},
		{"python sys.stdin", runtime.Python, "import sys\nfor l in sys.stdin: print(l)", []string{StdinPrompt}},
		{"python mismatched quotes", runtime.Python, `x = input("oops')`, []string{GenericPrompt}},
		{"js question", runtime.JavaScript, `rl.question("Name? ", cb)`, []string{"Name? "}},
		{"ts question", runtime.TypeScript, `rl.question('Age: ', (a: string) => {})`, []string{"Age: "}},
		{"js process.stdin", runtime.JavaScript, `process.stdin.on("data", d => {})`, []string{GenericPrompt}},
		{"js readline only", runtime.JavaScript, `const readline = require("readline")`, []string{GenericPrompt}},
		{"js none", runtime.JavaScript, `console.log(1)`, []string{}},
		{"java scanner", runtime.Java, "int a = sc.nextInt();\nString s = sc.nextLine();\nString t = sc.next();", []string{GenericPrompt, GenericPrompt, GenericPrompt}},
		{"cpp cin", runtime.Cpp, "cin >> a;\ncin>>b;", []string{GenericPrompt, GenericPrompt}},
		{"go scan", runtime.Go, "fmt.Scanln(&a)\nfmt.Scan(&b)", []string{GenericPrompt, GenericPrompt}},
		{"php stdin", runtime.PHP, `$h = fopen("php://stdin", "r"); $l = fgets($h);`, []string{GenericPrompt}},
		{"php none", runtime.PHP, `<?php echo 1;`, []string{}},
		{"html never", runtime.HTML, `<input type="text">`, []string{}},
		{"empty code", runtime.Python, "", []string{}},
		{"unknown language", runtime.Language("rust"), "input()", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prompts(tt.lang, tt.code)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Prompts(%s, %q) = %q, want %q", tt.lang, tt.code, got, tt.want)
			}
		})
	}
}

func TestPrompts_Idempotent(t *testing.T) {
	code := "a = input(\"First:\")\nb = input()\nimport sys"
	first := Prompts(runtime.Python, code)
	second := Prompts(runtime.Python, code)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Prompts not idempotent: %q vs %q", first, second)
	}
}

func TestPrompts_MalformedCode(t *testing.T) {
	inputs := []string{"input(", `input("`, "cin >>", `question("`, strings.Repeat("(", 1000)}
	for _, lang := range runtime.NewRegistry().Languages() {
		for _, code := range inputs {
			_ = Prompts(lang, code)
		}
	}
}

func TestRequiresInput(t *testing.T) {
	if !RequiresInput(runtime.Cpp, "cin >> x;") {
		t.Error("RequiresInput(cpp, cin) = false")
	}
	if RequiresInput(runtime.HTML, "<form></form>") {
		t.Error("RequiresInput(html) = true")
	}
}

func TestJoinStdin(t *testing.T) {
	prompts := []string{"A:", "B:", "C:"}

	tests := []struct {
		name   string
		values map[int]string
		want   string
	}{
		{"all filled", map[int]string{0: "1", 1: "2", 2: "3"}, "1\n2\n3"},
		{"missing middle", map[int]string{0: "1", 2: "3"}, "1\n\n3"},
		{"none", nil, "\n\n"},
		{"extra ignored", map[int]string{0: "1", 1: "2", 2: "3", 5: "x"}, "1\n2\n3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinStdin(prompts, tt.values)
			if got != tt.want {
				t.Errorf("JoinStdin = %q, want %q", got, tt.want)
			}
			if lines := strings.Split(got, "\n"); len(lines) != len(prompts) {
				t.Errorf("line count = %d, want %d", len(lines), len(prompts))
			}
		})
	}

	if got := JoinStdin(nil, map[int]string{0: "x"}); got != "" {
		t.Errorf("JoinStdin(no prompts) = %q, want empty", got)
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		lang     runtime.Language
		stderr   string
		wantNil  bool
		wantLine int
		wantHint string // substring of the friendly text
	}{
		{"empty", runtime.Python, "", true, 0, ""},
		{"python traceback line", runtime.Python, "Traceback (most recent call last):\n  File \"main.py\", line 7, in <module>\nZeroDivisionError: division by zero", false, 7, ""},
		{"python name error", runtime.Python, "  File \"main.py\", line 2\nNameError: name 'x' is not defined", false, 2, "Name Error"},
		{"python syntax error", runtime.Python, "SyntaxError: invalid syntax", false, 0, "Syntax Error"},
		{"python indentation error", runtime.Python, "IndentationError: unexpected indent", false, 0, "Indentation"},
		{"cpp expected", runtime.Cpp, "main.cpp:12:5: error: expected ';' before '}' token", false, 12, "Syntax Error"},
		{"cpp undeclared", runtime.Cpp, "error: use of undeclared identifier 'y'", false, 0, "Undeclared Identifier"},
		{"js reference", runtime.JavaScript, "/piston/jobs/x/main.js:3:1\nReferenceError: foo is not defined", false, 3, "Reference Error"},
		{"ts unexpected token", runtime.TypeScript, "SyntaxError: Unexpected token '}'", false, 0, "Syntax Error"},
		{"java missing symbol", runtime.Java, "Main.java:5: error: cannot find symbol", false, 5, "cannot find"},
		{"java expected", runtime.Java, "Main.java:3: error: ';' expected", false, 3, "semicolon"},
		{"php line", runtime.PHP, "PHP Parse error: syntax error in /piston/main.php on line 4", false, 4, ""},
		{"go line", runtime.Go, "./main.go:9: undefined: x", false, 9, ""},
		{"no signal", runtime.Python, "something odd happened", true, 0, ""},
		{"html", runtime.HTML, "whatever:1:2", true, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.lang, tt.stderr)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Analyze = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Analyze = nil, want analysis")
			}
			if got.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", got.Line, tt.wantLine)
			}
			if tt.wantHint == "" {
				if got.IsHint {
					t.Errorf("unexpected hint %q", got.Friendly)
				}
				return
			}
			if !got.IsHint || !strings.Contains(got.Friendly, tt.wantHint) {
				t.Errorf("Friendly = %q, want it to contain %q", got.Friendly, tt.wantHint)
			}
		})
	}
}

func TestAnalyze_JavaPublicClassName(t *testing.T) {
	// "expected" is checked before the class-name signature, so use stderr
	// without it.
	stderr := "Main.java:1: error: class Foo is public, should be declared in a file named Foo.java"
	got := Analyze(runtime.Java, stderr)
	if got == nil || !strings.Contains(got.Friendly, "named 'Main'") {
		t.Errorf("Analyze = %+v, want class name hint", got)
	}
}
