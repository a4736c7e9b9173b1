// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Code that stamps records or measures session durations accepts a
// Clock instead of calling time.Now or time.After directly. In
// production, Real() provides the standard library behavior. In tests,
// Fake() provides a deterministic clock that advances only when
// Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	interceptor := shim.New(shim.Config{Clock: c, ...})
//	// ... records are stamped with c.Now() ...
//	c.Advance(5 * time.Second)
package clock
