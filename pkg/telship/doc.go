// Package telship provides an embeddable, disk-backed telemetry shipper.
//
// Producers append opaque records (typically serialized JSON) to a feature
// stream. Records are written to size- and age-bounded batch files under a
// storage directory and a background loop uploads the oldest eligible file to
// an HTTP collector, speeding up while uploads succeed and backing off while
// they fail. Nothing is uploaded until the user grants tracking consent;
// records written while consent is pending are held in a quarantine
// directory and migrated in order once consent is granted, or deleted if it
// is refused.
//
// # Basic Usage
//
//	t, err := telship.New(telship.Config{
//	    StorageDir: "/var/lib/myapp/telemetry",
//	    Feature:    "logs",
//	    ServiceURL: "https://collector.example.com",
//	    AuthKey:    "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
//	t.SetConsent(telship.ConsentGranted)
//	_ = t.Append([]byte(`{"message":"hello"}`))
//
// # Tuning
//
// File sizes, file ages and upload pacing come from a [PerformancePreset]
// derived from [Config.BatchSize], [Config.UploadFrequency] and
// [Config.BundleType]. A fully custom preset can be passed with
// [WithPerformancePreset].
//
// # Upload Conditions
//
// Each upload cycle is skipped unless consent is granted, the collector is
// not known to be unreachable and the battery policy allows it. Inject
// device state with [WithBatteryProvider] and [WithNetworkProvider], or let
// telship poll the Linux battery and probe the collector via
// [Config.MonitorBattery] and [Config.ReachabilityInterval].
//
// # Host Lifecycle
//
// [Telship.FlushSynchronously] drains storage immediately, for instance
// before the process exits. [Telship.CancelSynchronously] stops the upload
// loop and waits for it; unsent batches stay on disk for the next run.
//
// # Events and Metrics
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe lifecycle changes, uploads and dropped
// records. Prometheus collectors are registered with
// [WithMetricsRegisterer].
package telship
