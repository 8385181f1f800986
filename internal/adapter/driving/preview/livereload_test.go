package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"before body", "<body><p>x</p></body>", `<body><p>x</p><script src="/__livereload.js"></script></body>`},
		{"last body wins", "<body>a</body>b</body>", `<body>a</body>b<script src="/__livereload.js"></script></body>`},
		{"upper case", "<BODY></BODY>", `<BODY><script src="/__livereload.js"></script></BODY>`},
		{"no body", "<p>x</p>", `<p>x</p><script src="/__livereload.js"></script>`},
		{"empty", "", `<script src="/__livereload.js"></script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(injectScript([]byte(tt.in))))
		})
	}
}

func TestInjectScript_DoesNotModifyInput(t *testing.T) {
	page := []byte("<p>x</p>")
	_ = injectScript(page)
	assert.Equal(t, "<p>x</p>", string(page))
}
