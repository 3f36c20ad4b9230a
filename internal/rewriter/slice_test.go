package rewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const pySource = `import os

def first(a):
    return a

def second(b):
    if b:
        return b * 2
    return 0

class Helper:
    def inner(self):
        pass
`

func TestExtractEntityCodePython(t *testing.T) {
	got := ExtractEntityCode(pySource, "second", "python")
	assert.Contains(t, got, "def second(b):")
	assert.Contains(t, got, "return b * 2")
	assert.NotContains(t, got, "def first")
	assert.NotContains(t, got, "class Helper")

	cls := ExtractEntityCode(pySource, "Helper", "python")
	assert.Contains(t, cls, "class Helper:")
	assert.Contains(t, cls, "def inner")

	assert.Empty(t, ExtractEntityCode(pySource, "missing", "python"))
}

func TestExtractEntityCodeJavaScript(t *testing.T) {
	src := `function alpha() {
  return 1;
}

const beta = (x) => x + 1;

export function gamma(y) {
  if (y) {
    return y;
  }
  return 0;
}
`
	got := ExtractEntityCode(src, "gamma", "javascript")
	assert.Contains(t, got, "function gamma(y)")
	assert.Contains(t, got, "return 0;")
	assert.NotContains(t, got, "alpha")

	arrow := ExtractEntityCode(src, "beta", "javascript")
	assert.Contains(t, arrow, "const beta = (x) => x + 1;")
}

func TestExtractEntityCodeUnsupportedLanguage(t *testing.T) {
	assert.Empty(t, ExtractEntityCode("func main() {}", "main", "go"))
}
