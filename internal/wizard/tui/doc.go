// Package tui implements the terminal user interface of the ZooThing setup wizard.
//
// The wizard finds devices in configuration mode and pushes a name and network
// credentials to the portal of the one the operator picks. It is built on
// Bubble Tea and follows the Model-Update-View pattern.
//
// # Screen Flow
//
//  1. Discovery: scans over mDNS while a spinner runs, lists the devices
//     found and accepts a portal address typed by hand (m).
//  2. Form: device name, station SSID and passphrase, AP passphrase. The
//     values are checked with the same rules the portal applies before
//     anything is sent.
//  3. Pushing: the submission is in flight.
//  4. Result: the portal response, with its warnings highlighted, or the
//     error. e edits again, d goes back to discovery, q quits.
//
// All screens share RenderApplicationContainer for the header, content and
// help line. Blocking work (scan, push) runs in commands; the models only
// change in Update.
//
// # Usage
//
//	app := tui.NewAppModel(ctx, scan, push, nil)
//	if _, err := tea.NewProgram(app).Run(); err != nil {
//	    return err
//	}
package tui
