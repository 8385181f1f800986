package preview

import (
	"bytes"
)

// Paths served by the preview server itself.
const (
	LiveReloadPath   = "/__livereload"
	LiveReloadScript = "/__livereload.js"
)

var scriptTag = []byte(`<script src="` + LiveReloadScript + `"></script>`)

// liveReloadJS reconnects on close, swaps stylesheets on "css" messages and
// reloads the page on anything else.
const liveReloadJS = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(scheme + location.host + "` + LiveReloadPath + `");
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "css") {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
          var url = new URL(link.href);
          url.searchParams.set("_lr", Date.now());
          link.href = url.toString();
        });
        return;
      }
      location.reload();
    };
    ws.onclose = function () {
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
`

// injectScript inserts the live-reload script tag before the last </body>,
// or appends it when the document has none.
func injectScript(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page[:len(page):len(page)], scriptTag...)
	}

	out := make([]byte, 0, len(page)+len(scriptTag))
	out = append(out, page[:i]...)
	out = append(out, scriptTag...)
	return append(out, page[i:]...)
}
