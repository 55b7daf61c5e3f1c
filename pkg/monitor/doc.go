// Package monitor keeps the device registry in step with the bridge tools.
//
// A reconciliation pass enumerates devices with both the bridge tool and
// the bootloader tool, unions the two listings, replaces the registry
// snapshot and publishes the difference on the event bus. Passes are
// serialized, so polling and hot-plug triggers never publish conflicting
// sets.
//
// Two drivers are provided:
//
//   - WaitUntilPresent blocks a caller until at least one device is
//     present, re-checking at a fixed interval.
//   - Run reacts to change notifiers (kernel hot-plug, mDNS) and falls
//     back to polling when none can start.
package monitor
