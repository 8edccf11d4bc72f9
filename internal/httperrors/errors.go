// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns command failures into user-facing messages: the
// adapter's error kinds first, then the usual network failure shapes.
package httperrors

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/logging"
	"seedfast/forcebridge/internal/remote"

	"github.com/pterm/pterm"
)

// Category is the user-facing class of a failure.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Server
	Authentication
	Configuration
	Unsupported
	Protocol
)

// Classify picks the category that best explains err.
func Classify(err error) Category {
	if err == nil {
		return Generic
	}
	switch ferr.KindOf(err) {
	case ferr.Configuration:
		return Configuration
	case ferr.Authentication:
		return Authentication
	case ferr.UnsupportedStatement:
		return Unsupported
	case ferr.ProtocolViolation:
		return Protocol
	}
	switch {
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	case isServerError(err):
		return Server
	}
	return Generic
}

// Present prints a formatted explanation of err. action completes the
// sentence "... while <action>"; host names the remote endpoint when known.
func Present(err error, action, host string) {
	if err == nil {
		return
	}
	details := logging.Mask(err.Error())
	cat := Classify(err)
	pterm.Error.Printf("%s while %s\n", headline(cat), action)
	pterm.Println()
	for _, line := range hints(cat, host) {
		pterm.Println(line)
	}
	pterm.Println()
	if cat != Generic && cat != Configuration && cat != Unsupported {
		pterm.Debug.Printf("Technical details: %s\n", shorten(details, 200))
		return
	}
	pterm.Println(details)
}

func headline(cat Category) string {
	switch cat {
	case Timeout:
		return "Connection timeout"
	case DNS:
		return "Cannot resolve server address"
	case ConnectionRefused:
		return "Connection refused"
	case TLS:
		return "Secure connection failed"
	case Server:
		return "Server error"
	case Authentication:
		return "Login failed"
	case Configuration:
		return "Configuration problem"
	case Unsupported:
		return "Unsupported statement"
	case Protocol:
		return "Unexpected response from the remote API"
	default:
		return "Request failed"
	}
}

func hints(cat Category, host string) []string {
	if host == "" {
		host = "the remote API"
	}
	switch cat {
	case Timeout:
		return []string{
			"The server took too long to respond. This could mean:",
			"  • Slow internet connection",
			"  • Server is under heavy load",
			"  • http_timeout in the config file is too low",
		}
	case DNS:
		return []string{
			"Unable to look up " + host + ". Please check:",
			"  • Your internet connection is working",
			"  • login_url in the config file is spelled correctly",
		}
	case ConnectionRefused:
		return []string{
			host + " is not accepting connections. This could mean:",
			"  • Firewall is blocking the connection",
			"  • Wrong server address or port",
		}
	case TLS:
		return []string{
			"Cannot establish a secure HTTPS connection. Try:",
			"  • Check your system date and time",
			"  • Verify network proxy settings",
		}
	case Server:
		return []string{
			host + " encountered an internal error.",
			"  • Please try again in a few minutes",
		}
	case Authentication:
		return []string{
			"The credentials were rejected. Please check:",
			"  • Username and password (run 'forcebridge connect <name>' to store a new one)",
			"  • The security token, unless your IP is allow-listed",
			"  • client_id / client_secret of the connected app",
		}
	case Protocol:
		return []string{
			"The response did not have the expected shape.",
			"  • Check api_version in the config file",
		}
	default:
		return nil
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError reports 5xx responses from the remote API.
func isServerError(err error) bool {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
