package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"pkg/app.py", true},
		{"config.yaml", true},
		{"Dockerfile", true},
		{"deploy/Makefile", true},
		{"logo.png", false},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCodeFile(tt.path))
		})
	}
}

func TestFilter_Defaults(t *testing.T) {
	f := NewFilter(0)

	assert.True(t, f.Ignored("node_modules", true))
	assert.True(t, f.Ignored("web/node_modules", true))
	assert.True(t, f.Ignored(".git", true))
	assert.True(t, f.Ignored("app/module.pyc", false))
	assert.True(t, f.Ignored(".env", false))
	assert.True(t, f.Ignored(".env.local", false))
	assert.False(t, f.Ignored("src", true))
	assert.False(t, f.Ignored("src/main.go", false))
	assert.False(t, f.Ignored("", true))
	assert.Equal(t, int64(DefaultMaxFileBytes), f.MaxBytes())
}

func TestFilter_Accept(t *testing.T) {
	f := NewFilter(100)

	assert.True(t, f.Accept("main.go", 100))
	assert.False(t, f.Accept("main.go", 101), "over the size cap")
	assert.False(t, f.Accept("image.png", 10), "not a code file")
	assert.False(t, f.Accept("build/gen.go", 10), "inside an ignored directory")
}

func TestFilter_Extra(t *testing.T) {
	f := NewFilter(0, "*.gen.go", " ")

	assert.True(t, f.Ignored("api/types.gen.go", false))
	assert.False(t, f.Ignored("api/types.go", false))
}

func TestFilter_AddIgnoreFile(t *testing.T) {
	f := NewFilter(0)
	f.AddIgnoreFile("", []byte("# generated\n*.tmp\n\nsecrets/\n"))
	f.AddIgnoreFile("web", []byte("fixtures/\n"))

	assert.True(t, f.Ignored("a.tmp", false))
	assert.True(t, f.Ignored("deep/b.tmp", false))
	assert.True(t, f.Ignored("secrets", true))
	assert.True(t, f.Ignored("web/fixtures", true))
	assert.False(t, f.Ignored("api/fixtures", true), "nested patterns only apply below their directory")
}

func TestFilter_InIgnoredDir(t *testing.T) {
	f := NewFilter(0)

	assert.True(t, f.InIgnoredDir("node_modules/pkg/index.js"))
	assert.True(t, f.InIgnoredDir("web/dist/app.js"))
	assert.False(t, f.InIgnoredDir("src/dist.go"))
	assert.False(t, f.InIgnoredDir("main.go"))
}
