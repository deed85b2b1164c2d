// Package gate provides a boolean state cell with last-value broadcast
// semantics: every observer immediately receives the current value on
// subscription and then every subsequent change, in order.
//
// It is the readiness primitive used by pkg/strand to coordinate a
// single-flight task queue, but is generally useful wherever several
// parties need to observe an open/closed style flag without polling.
//
// # Usage
//
//	g := gate.New(false)
//
//	unsubscribe := g.Subscribe(func(ready bool) {
//	    if ready {
//	        // resource became available
//	    }
//	})
//	defer unsubscribe()
//
//	g.Set(true) // notifies the subscriber above
//
// Notifications are synchronous and fire only on actual value changes;
// Set(true) while the value is already true does nothing. Only the latest
// value is retained, so a subscriber arriving late observes the current
// state once rather than a history of transitions.
package gate
