// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Exit codes
const (
	ExitSuccess  = 0 // Operation completed successfully
	ExitGeneral  = 1 // Unknown/unhandled error
	ExitAuth     = 2 // Not authenticated, token rejected
	ExitConflict = 3 // Request conflicts with existing state
	ExitNotFound = 4 // Resource doesn't exist
	ExitGateway  = 5 // Downstream device-auth service unavailable
)

// Error codes (strings) for programmatic error handling
const (
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeDeviceNotFound     = "DEVICE_NOT_FOUND"
	CodeIdentityExists     = "IDENTITY_EXISTS"
	CodeTransitionConflict = "TRANSITION_CONFLICT"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NotAuthorized creates an error for rejected credentials.
func NotAuthorized() *CLIError {
	return &CLIError{
		Code:      CodeNotAuthorized,
		Message:   "authentication token was rejected",
		Hint:      "Check the --token flag or the ADMITCTL_TOKEN variable",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// DeviceNotFound creates an error when an authorization set doesn't exist.
func DeviceNotFound(id string) *CLIError {
	return &CLIError{
		Code:      CodeDeviceNotFound,
		Message:   fmt.Sprintf("authorization set '%s' not found", id),
		Hint:      "Check the id with 'admitctl device list'",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// IdentityExists creates an error for a duplicate device identity.
func IdentityExists() *CLIError {
	return &CLIError{
		Code:      CodeIdentityExists,
		Message:   "a device with this identity already exists",
		Hint:      "Delete the existing authorization set first, or check the identity attributes",
		Retryable: false,
		ExitCode:  ExitConflict,
	}
}

// TransitionConflict creates an error for a rejected status change.
func TransitionConflict(detail string) *CLIError {
	return &CLIError{
		Code:      CodeTransitionConflict,
		Message:   detail,
		Hint:      "Preauthorized devices can only be accepted",
		Retryable: false,
		ExitCode:  ExitConflict,
	}
}

// InvalidInput creates an error for a request the server refused.
func InvalidInput(detail string) *CLIError {
	return &CLIError{
		Code:      CodeInvalidInput,
		Message:   detail,
		Hint:      "The identity must be a JSON document and the key a PEM public key",
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// GatewayUnavailable creates an error when the device-auth service is down.
func GatewayUnavailable() *CLIError {
	return &CLIError{
		Code:      CodeGatewayUnavailable,
		Message:   "device authentication service unavailable",
		Hint:      "The admission server could not reach its downstream gateway, retry later",
		Retryable: true,
		ExitCode:  ExitGateway,
	}
}

// ConnectionFailed creates an error for connection failures.
func ConnectionFailed(target string) *CLIError {
	return &CLIError{
		Code:      CodeConnectionFailed,
		Message:   fmt.Sprintf("failed to connect to '%s'", target),
		Hint:      "Check the --server flag and that the admission server is running",
		Retryable: true,
		ExitCode:  ExitGeneral,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FromStatus maps an HTTP error response from the admission API onto a
// structured CLI error. The id is used for not-found messages.
func FromStatus(status int, id, serverMessage string) *CLIError {
	switch status {
	case http.StatusUnauthorized:
		return NotAuthorized()
	case http.StatusNotFound:
		return DeviceNotFound(id)
	case http.StatusConflict:
		if serverMessage == "device identity already exists" {
			return IdentityExists()
		}
		return TransitionConflict(serverMessage)
	case http.StatusBadRequest:
		return InvalidInput(serverMessage)
	case http.StatusBadGateway:
		return GatewayUnavailable()
	default:
		return InternalError(fmt.Errorf("server returned %d: %s", status, serverMessage))
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
