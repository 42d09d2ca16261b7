// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package api

// Machine-readable error codes returned in the error envelope.
const (
	ErrCodeNotReady      = "NOT_READY"
	ErrCodeInvalidParam  = "INVALID_PARAMETER"
	ErrCodeExportFailed  = "EXPORT_FAILED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
