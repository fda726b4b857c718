package runtime

import (
	"fmt"
	"strings"

	"codeplay/internal/sandbox"
)

// Language is the logical language tag a client selects.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Cpp        Language = "cpp"
	Go         Language = "go"
	PHP        Language = "php"
	HTML       Language = "html"
)

// Runtime describes how one logical language maps onto the sandbox.
type Runtime struct {
	Language Language
	Name     string // display name, e.g. "C++"
	Sandbox  string // sandbox runtime identifier
	Version  string
	FileName string
	Snippet  string // starter code shown for a fresh editor

	// Executable is false for languages rendered by the client (html).
	Executable bool

	// layout overrides the default single-file submission.
	layout func(rt Runtime, code string) []sandbox.File
}

// Files returns the files to submit to the sandbox for code. The first file
// is the entry point.
func (rt Runtime) Files(code string) []sandbox.File {
	if rt.layout != nil {
		return rt.layout(rt, code)
	}
	return rt.EntryFile(code)
}

// EntryFile returns code as the single entry file, ignoring any layout hook.
func (rt Runtime) EntryFile(code string) []sandbox.File {
	return []sandbox.File{{Name: rt.FileName, Content: code}}
}

// Package returns the provisioning key for this runtime.
func (rt Runtime) Package() sandbox.Package {
	return sandbox.Package{Language: rt.Sandbox, Version: rt.Version}
}

// Registry maps language tags to their Runtime. Lookup order is the table
// order, which is also the order supported languages are reported in.
type Registry struct {
	order    []Language
	runtimes map[Language]Runtime
}

// NewRegistry creates a registry with all supported runtimes.
func NewRegistry() *Registry {
	r := &Registry{runtimes: make(map[Language]Runtime)}
	for _, rt := range defaultRuntimes() {
		r.Register(rt)
	}
	return r
}

// Register adds or replaces a runtime.
func (r *Registry) Register(rt Runtime) {
	if _, ok := r.runtimes[rt.Language]; !ok {
		r.order = append(r.order, rt.Language)
	}
	r.runtimes[rt.Language] = rt
}

// Get returns the runtime for the given language.
func (r *Registry) Get(language string) (Runtime, error) {
	rt, ok := r.runtimes[Language(language)]
	if !ok {
		return Runtime{}, &UnsupportedError{Language: language, Supported: r.Languages()}
	}
	return rt, nil
}

// MustGet is Get for tags known to be registered.
func (r *Registry) MustGet(lang Language) Runtime {
	rt, err := r.Get(string(lang))
	if err != nil {
		panic(err)
	}
	return rt
}

// Languages returns all registered language tags in table order.
func (r *Registry) Languages() []Language {
	return append([]Language(nil), r.order...)
}

// Packages returns the sandbox packages that must be installed to serve
// every executable language.
func (r *Registry) Packages() []sandbox.Package {
	pkgs := make([]sandbox.Package, 0, len(r.order))
	for _, lang := range r.order {
		rt := r.runtimes[lang]
		if !rt.Executable {
			continue
		}
		pkgs = append(pkgs, rt.Package())
	}
	return pkgs
}

// Parse validates a language tag against the default table.
func Parse(s string) (Language, error) {
	rt, err := defaultRegistry.Get(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return "", err
	}
	return rt.Language, nil
}

// UnsupportedError is returned for language tags missing from the table.
type UnsupportedError struct {
	Language  string
	Supported []Language
}

func (e *UnsupportedError) Error() string {
	names := make([]string, len(e.Supported))
	for i, l := range e.Supported {
		names[i] = string(l)
	}
	return fmt.Sprintf("Unsupported language: %s. Supported: %s", e.Language, strings.Join(names, ", "))
}

var defaultRegistry = NewRegistry()

func defaultRuntimes() []Runtime {
	return []Runtime{
		{
			Language: Python, Name: "Python", Sandbox: "python", Version: "3.10.0",
			FileName: "main.py", Executable: true, layout: pythonLayout,
			Snippet: `print("Hello from Python!")`,
		},
		{
			Language: JavaScript, Name: "JavaScript", Sandbox: "javascript", Version: "18.15.0",
			FileName: "main.js", Executable: true,
			Snippet: `console.log("Hello from JavaScript!");`,
		},
		{
			Language: TypeScript, Name: "TypeScript", Sandbox: "typescript", Version: "5.0.3",
			FileName: "index.ts", Executable: true,
			Snippet: "const message: string = \"Hello from TypeScript!\";\nconsole.log(message);",
		},
		{
			Language: Java, Name: "Java", Sandbox: "java", Version: "15.0.2",
			FileName: "Main.java", Executable: true,
			Snippet: "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello from Java!\");\n    }\n}",
		},
		{
			Language: Cpp, Name: "C++", Sandbox: "cpp", Version: "10.2.0",
			FileName: "main.cpp", Executable: true,
			Snippet: "#include <iostream>\nusing namespace std;\n\nint main() {\n    cout << \"Hello from C++!\" << endl;\n    return 0;\n}",
		},
		{
			Language: Go, Name: "Go", Sandbox: "go", Version: "1.16.2",
			FileName: "main.go", Executable: true,
			Snippet: "package main\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello from Go!\")\n}",
		},
		{
			Language: PHP, Name: "PHP", Sandbox: "php", Version: "8.2.3",
			FileName: "main.php", Executable: true,
			Snippet: "<?php\necho \"Hello from PHP!\";\n?>",
		},
		{
			Language: HTML, Name: "HTML", Sandbox: "html", Version: "5.0.0",
			FileName: "index.html",
			Snippet: "<!DOCTYPE html>\n<html>\n<body>\n<h1>Hello from HTML5</h1>\n</body>\n</html>",
		},
	}
}
