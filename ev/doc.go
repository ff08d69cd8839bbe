// Package ev is the event core shared by layer-shell and session-lock
// clients. A WindowState owns the compositor connection and a set of units,
// each a surface with a shell role. Protocol events are queued as tagged
// messages and handed to a single handler from Run; the handler answers
// with ReturnData that the loop applies before the next dispatch.
//
// Everything runs on the goroutine that calls Run. The only other
// goroutine is the relay started by RunWithUserEvents.
package ev
