package bridge

import _ "embed"

// Script is the browser side of the bridge, served as /public/bridge.js.
//
//go:embed bridge.js
var Script []byte
