// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package capability provides the versioned function tables handed to
// addons when they load.
//
// Each table version is a superset of the previous one. Tables are built
// once per version and reused for every addon that requests that version;
// an addon asking for a version the host does not know is rejected.
// Tables forward to host services that are injected through Services, so
// a nil service simply turns the corresponding entries into logged no-ops.
package capability
