// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package addon discovers, loads, unloads and hot-reloads addon modules
// from a watched directory.
//
// All addon state lives in a Registry owned by a Loader. Every change to
// that state happens while the Loader's lock is held: the dispatcher holds
// it for a whole pass over the action queue, and the change detector holds
// it while it compares the directory against the registry. Work that may
// block, such as calling an addon's unload entry or checking for updates,
// runs on a worker pool and reports back by enqueuing an action or by
// sending a result the dispatcher applies on its next pass.
package addon
