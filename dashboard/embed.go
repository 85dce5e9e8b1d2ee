// Package dashboard provides the embedded web page for the tinystore
// inspector.
//
// The page subscribes to the inspector's Server-Sent Events stream and
// renders each state snapshot as it arrives. It is embedded at compile
// time so the binary needs no external asset files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the inspector page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Live state view with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
