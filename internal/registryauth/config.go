package registryauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

type dockerConfigJSON struct {
	// Auths is a map of registries and their credentials.
	Auths map[string]dockerConfigAuth `json:"auths,omitempty"`
}

type dockerConfigAuth struct {
	// Auth is the base64 encoded "username:password" for the registry.
	Auth          string `json:"auth,omitempty"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	Email         string `json:"email,omitempty"`
	IdentityToken string `json:"identitytoken,omitempty"`
}

// ParseDockerConfigJSON converts a docker config.json document, as supplied
// via the DOCKERCONFIGJSON environment variable, into an AuthConfigs set.
// The base64 "auth" field is decoded into username and password when the
// explicit fields are absent. The registry key is recorded as the
// ServerAddress of each entry.
func ParseDockerConfigJSON(data []byte) (AuthConfigs, error) {
	var cfg dockerConfigJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling docker config json: %w", err)
	}

	configs := make(AuthConfigs, len(cfg.Auths))
	for registry, entry := range cfg.Auths {
		ac := AuthConfig{
			Username:      entry.Username,
			Password:      entry.Password,
			Email:         entry.Email,
			ServerAddress: registry,
			IdentityToken: entry.IdentityToken,
		}
		if entry.Auth != "" && (ac.Username == "" || ac.Password == "") {
			user, pass, err := decodeAuthField(entry.Auth)
			if err != nil {
				return nil, fmt.Errorf("registry %s: %w", registry, err)
			}
			if ac.Username == "" {
				ac.Username = user
			}
			if ac.Password == "" {
				ac.Password = pass
			}
		}
		configs[registry] = ac
	}
	return configs, nil
}

func decodeAuthField(auth string) (string, string, error) {
	buf, err := base64.StdEncoding.DecodeString(auth)
	if err != nil {
		return "", "", fmt.Errorf("decoding auth field: %w", err)
	}
	user, pass, ok := strings.Cut(string(buf), ":")
	if !ok {
		return "", "", fmt.Errorf("auth field is not username:password")
	}
	return user, pass, nil
}
