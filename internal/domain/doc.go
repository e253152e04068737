// Package domain holds the value types shared by storage, the upload
// scheduler and the public API. It imports nothing outside the standard
// library.
//
//   - [Batch]: the contents of one batch file handed to the upload path
//   - [Consent]: the tracking consent that decides whether writes persist
//   - [Outcome]: the closed set of delivery results reported by a transport
//   - [PerformancePreset]: storage thresholds and upload pacing parameters
//   - [BatteryStatus], [NetworkInfo], [DateCorrection]: device conditions
//
// Presets are derived once from (BatchSize, UploadFrequency, BundleType) and
// never mutated afterwards.
package domain
