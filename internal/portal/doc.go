// Package portal implements the configuration web portal served while the
// device runs its access point, and a client for pushing settings to it.
//
// # Routes
//
//	GET /        settings form pre-filled with the stored identity
//	GET /set     apply ?thing=&ssid=&pass=&appass= and reply in text/plain
//	GET /events  websocket status stream (only when enabled)
//
// Every other path or method gets a 404 with the body "not found".
//
// # Usage
//
//	m, _ := zoo.New(zoo.Options{
//	    Adapter: adapter,
//	    Store:   store,
//	    Portal:  portal.Opener(portal.Config{Listen: ":80", MDNS: true}),
//	})
package portal
