package middleware

import (
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Middleware sits below the handlers and must not depend on them.
func TestDoesNotImportHandlers(t *testing.T) {
	pkgs, err := parser.ParseDir(token.NewFileSet(), ".", nil, parser.ImportsOnly)
	require.NoError(t, err)

	for _, pkg := range pkgs {
		for name, file := range pkg.Files {
			for _, spec := range file.Imports {
				path, err := strconv.Unquote(spec.Path.Value)
				require.NoError(t, err)
				assert.False(t, strings.Contains(path, "/pkg/handlers"), "%s imports %s", name, path)
			}
		}
	}
}
