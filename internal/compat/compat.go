// Package compat checks at startup that this client version is supported
// by the tracker it talks to.
//
// The tracker advertises a supported client range via GET /version. A
// client below min_client_version cannot run; one below
// max_client_version should upgrade. Development builds skip comparisons.
package compat

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// VersionSource performs the version handshake.
type VersionSource interface {
	Version(ctx context.Context, clientVersion string, scope tracker.Scope) (tracker.VersionInfo, error)
}

// Result is the outcome of a compatibility check.
type Result struct {
	// ClientVersion is the running version (e.g. "0.3.0").
	ClientVersion string
	// ServerVersion is what the tracker reported.
	ServerVersion    string
	MinClientVersion string
	MaxClientVersion string
	// Compatible is false only when the client is older than
	// MinClientVersion.
	Compatible bool
	// UpgradeRecommended is true when the client is older than
	// MaxClientVersion.
	UpgradeRecommended bool
}

// Check queries src and compares the advertised range against
// clientVersion. A non-nil error means the check itself failed; callers
// treat that as a warning, not a reason to stop.
func Check(ctx context.Context, src VersionSource, clientVersion string, scope tracker.Scope) (*Result, error) {
	result := &Result{
		ClientVersion: normalizeVersion(clientVersion),
		Compatible:    true,
	}

	info, err := src.Version(ctx, clientVersion, scope)
	if err != nil {
		return result, fmt.Errorf("checking server version: %w", err)
	}

	result.ServerVersion = info.ServerVersion
	result.MinClientVersion = normalizeVersion(info.MinClientVersion)
	result.MaxClientVersion = normalizeVersion(info.MaxClientVersion)

	if isOlder(result.ClientVersion, result.MinClientVersion) {
		result.Compatible = false
	}
	if isOlder(result.ClientVersion, result.MaxClientVersion) {
		result.UpgradeRecommended = true
	}
	return result, nil
}

// normalizeVersion strips a leading "v" so versions print the same way
// regardless of how they were tagged.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isOlder reports whether current is a lower semantic version than bound.
// Empty, "dev", or unparsable versions never compare as older.
func isOlder(current, bound string) bool {
	if current == "" || bound == "" || current == "dev" {
		return false
	}
	c, b := "v"+current, "v"+bound
	if !semver.IsValid(c) || !semver.IsValid(b) {
		return false
	}
	return semver.Compare(c, b) < 0
}
