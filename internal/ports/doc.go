// Package ports declares the interfaces between the upload core and its
// adapters.
//
//   - [Writer] and [Reader]: the two halves of a feature's batch storage
//   - [Transport]: delivers a batch and classifies the result as a [domain.Outcome]
//   - [Provider]: current value plus change subscription (consent, battery, network)
//   - [DateCorrector] and [DateProvider]: clock access and server time offset
//   - [StatusRepository]: persisted upload statistics
//   - [Logger] and [HTTPClient]
//
// internal/app depends only on this package and domain; internal/adapters
// and internal/storage provide the implementations.
package ports
