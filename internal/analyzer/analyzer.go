// Package analyzer tags probe results with security observations derived from
// the request path, the response status and the first bytes of the body.
package analyzer

import (
	"regexp"
	"strings"
)

// Observation labels attached to probe results.
const (
	DirectoryListing  = "Directory listing enabled"
	SensitivePath     = "Sensitive path potentially exposed"
	PHPInfo           = "phpinfo exposed"
	RestrictedAdmin   = "Restricted admin area (authorization required)"
	BackupArchiveFile = "Backup/archive file exposed"
)

// sensitivePrefixes are lower-case path prefixes that should never be publicly
// reachable: VCS metadata, backups, env/config, admin panels, admin tools, IDE
// metadata and server status pages.
var sensitivePrefixes = []string{
	"/.git", "/.svn", "/.hg",
	"/backup", "/backups",
	"/.env", "/config", "/configs",
	"/admin", "/phpmyadmin", "/wp-admin",
	"/server-status",
	"/.idea", "/.vscode",
}

var adminMarkers = []string{"/admin", "/wp-admin", "/phpmyadmin"}

var backupPattern = regexp.MustCompile(`(?i)\.(zip|tar|tar\.gz|tgz|bak|old|rar)$`)

// Analyze returns the observations for a single response. Checks run in a
// fixed order, which is also the order of the returned labels.
func Analyze(path string, status int, snippet string) []string {
	var issues []string
	low := strings.ToLower(snippet)
	lowPath := strings.ToLower(path)

	if status == 200 {
		if strings.Contains(low, "index of /") ||
			(strings.Contains(low, "parent directory") && strings.Contains(low, "<title>index of")) {
			issues = append(issues, DirectoryListing)
		}
		if hasAnyPrefix(lowPath, sensitivePrefixes) {
			issues = append(issues, SensitivePath)
		}
		if strings.Contains(low, "phpinfo()") || strings.Contains(low, "<h1>php info") {
			issues = append(issues, PHPInfo)
		}
	}

	if status == 401 || status == 403 {
		for _, m := range adminMarkers {
			if strings.Contains(lowPath, m) {
				issues = append(issues, RestrictedAdmin)
				break
			}
		}
	}

	if backupPattern.MatchString(path) {
		issues = append(issues, BackupArchiveFile)
	}

	return issues
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
