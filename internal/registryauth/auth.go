// Package registryauth carries per-registry credentials to the daemon.
//
// Build requests name images from any number of registries, so the daemon
// accepts the whole credential set in a single X-Registry-Config header:
// a JSON object keyed by registry address, passed through URL-safe base64
// so the value is header-safe ASCII.
package registryauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ConfigHeader is the request header carrying the encoded credential set.
const ConfigHeader = "X-Registry-Config"

// AuthConfig holds the credentials for one registry.
type AuthConfig struct {
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	Email         string `json:"email,omitempty"`
	ServerAddress string `json:"serveraddress,omitempty"`
	IdentityToken string `json:"identitytoken,omitempty"`
}

// AuthConfigs maps registry addresses to their credentials. Keys are taken
// as provided; duplicates are last-write-wins.
type AuthConfigs map[string]AuthConfig

// EncodeHeader serializes the credential set into the ConfigHeader value.
func EncodeHeader(configs AuthConfigs) (string, error) {
	buf, err := json.Marshal(configs)
	if err != nil {
		return "", fmt.Errorf("encoding registry auth configs: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// DecodeHeader is the inverse of EncodeHeader.
func DecodeHeader(value string) (AuthConfigs, error) {
	buf, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding registry auth header: %w", err)
	}
	var configs AuthConfigs
	if err := json.Unmarshal(buf, &configs); err != nil {
		return nil, fmt.Errorf("decoding registry auth configs: %w", err)
	}
	return configs, nil
}

// AttachHeaders merges the encoded credential set into headers under
// ConfigHeader, overwriting that key only, and returns the header map. A nil
// or empty set leaves headers untouched, as does an encoding failure. A nil
// map is allocated when there is something to attach.
func AttachHeaders(headers map[string]string, configs AuthConfigs) (map[string]string, error) {
	if len(configs) == 0 {
		return headers, nil
	}
	encoded, err := EncodeHeader(configs)
	if err != nil {
		return headers, err
	}
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers[ConfigHeader] = encoded
	return headers, nil
}
