package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions turns GOOGLE_APPLICATION_CREDENTIALS(_JSON) into client
// options. Inline JSON and file paths are both accepted.
func ClientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
