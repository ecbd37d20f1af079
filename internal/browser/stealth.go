package browser

import (
	"encoding/json"
	"strings"
)

// stealthTemplate masks the usual automation tells. It runs in every frame
// before any page script.
const stealthTemplate = `(() => {
  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (_) {}
  };
  define(Navigator.prototype, 'webdriver', undefined);
  define(Navigator.prototype, 'languages', __LANGUAGES__);
  define(Navigator.prototype, 'hardwareConcurrency', 8);
  define(Navigator.prototype, 'deviceMemory', 8);
  define(Navigator.prototype, 'plugins', [
    { name: 'PDF Viewer', filename: 'internal-pdf-viewer' },
    { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer' },
    { name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer' },
  ]);
  if (!window.chrome) { window.chrome = {}; }
  if (!window.chrome.runtime) { window.chrome.runtime = {}; }
  const query = window.navigator.permissions && window.navigator.permissions.query;
  if (query) {
    window.navigator.permissions.query = (p) => (
      p && p.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : query.call(window.navigator.permissions, p)
    );
  }
  const patchWebGL = (proto) => {
    if (!proto) { return; }
    const getParameter = proto.getParameter;
    proto.getParameter = function (param) {
      if (param === 37445) { return 'Intel Inc.'; }
      if (param === 37446) { return 'Intel Iris OpenGL Engine'; }
      return getParameter.call(this, param);
    };
  };
  patchWebGL(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
  patchWebGL(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);
})();`

// stealthScript renders the patch for the given locale.
func stealthScript(locale string) string {
	langs := []string{locale}
	if base, _, ok := strings.Cut(locale, "-"); ok && base != "" {
		langs = append(langs, base)
	}
	encoded, err := json.Marshal(langs)
	if err != nil {
		encoded = []byte(`["en-US","en"]`)
	}
	return strings.Replace(stealthTemplate, "__LANGUAGES__", string(encoded), 1)
}
