// Package conditions holds the injectable state that gates uploads: tracking
// consent, battery status, network reachability and server time correction.
//
// Every condition is modelled as a [Value], an owned holder with a synchronized
// Current/Set accessor and change subscription. Nothing in telship reads a
// process-wide singleton; hosts inject their own holders or feed the defaults.
package conditions
