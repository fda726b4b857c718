package runtime

import (
	"regexp"

	"codeplay/internal/sandbox"
)

// BootstrapFileName is the entry file submitted ahead of main.py when the
// input shim is active.
const BootstrapFileName = "bootstrap.py"

// inputToken matches input used as a whole word: input(), x = input, but
// not user_input or myinput. String literals and comments still match.
var inputToken = regexp.MustCompile(`\binput\b`)

// PythonBootstrap wraps builtins.input so blocking reads are safe when the
// sandbox has no terminal attached, then runs main.py as __main__.
const PythonBootstrap = `import builtins
import runpy
import sys

try:
    _orig_input = builtins.input
except AttributeError:
    def _orig_input(prompt=""):
        sys.stdout.write(prompt)
        sys.stdout.flush()
        return sys.stdin.readline().rstrip("\n")

def _safe_input(prompt=""):
    try:
        cleaned = _orig_input(prompt).strip()
        if not cleaned:
            return "0"
        return cleaned
    except (EOFError, RuntimeError):
        return "0"
    except Exception:
        return "0"

builtins.input = _safe_input

try:
    runpy.run_path("main.py", run_name="__main__")
except SystemExit:
    pass
except Exception:
    import traceback

    exc_type, exc_value, exc_tb = sys.exc_info()
    # Drop the bootstrap frame so the trace starts in main.py.
    if exc_tb and exc_tb.tb_next:
        exc_tb = exc_tb.tb_next
    traceback.print_exception(exc_type, exc_value, exc_tb)
    sys.exit(1)
`

// NeedsInputShim reports whether python code references input as a token.
func NeedsInputShim(code string) bool {
	return inputToken.MatchString(code)
}

func pythonLayout(rt Runtime, code string) []sandbox.File {
	if !NeedsInputShim(code) {
		return rt.EntryFile(code)
	}
	return []sandbox.File{
		{Name: BootstrapFileName, Content: PythonBootstrap},
		{Name: rt.FileName, Content: code},
	}
}
