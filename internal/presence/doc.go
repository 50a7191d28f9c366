// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package presence tracks which users are online.
//
// A single Bus is constructed at startup and shared by reference. Each live
// realtime connection is driven by a Session that either observes one user's
// status or reports the status of its own user.
package presence
