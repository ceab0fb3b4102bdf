package wifi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SupplicantStore persists credentials as a wpa_supplicant config with a
// single network block. Writes are atomic: a temp file in the target
// directory is renamed over the previous config, so a power cut mid-save
// leaves the old credentials intact.
type SupplicantStore struct {
	Path string
}

func (st *SupplicantStore) Save(creds Credentials) error {
	if len(creds.SSID) == 0 || len(creds.SSID) > MaxSSIDLength {
		return errors.Errorf("ssid length out of range: %d", len(creds.SSID))
	}
	if len(creds.Password) == 0 || len(creds.Password) > MaxPasswordLength {
		return errors.Errorf("password length out of range: %d", len(creds.Password))
	}

	var config strings.Builder
	config.WriteString("ctrl_interface=/var/run/wpa_supplicant\n")
	config.WriteString("update_config=1\n\n")
	config.WriteString("network={\n")
	fmt.Fprintf(&config, "\tssid=\"%s\"\n", escapeQuoted(creds.SSID))
	fmt.Fprintf(&config, "\tpsk=\"%s\"\n", escapeQuoted(creds.Password))
	config.WriteString("}\n")

	tmp, err := os.CreateTemp(filepath.Dir(st.Path), ".wpa_supplicant-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp supplicant config")
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(config.String())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, "failed to write temp supplicant config")
	}

	err = os.Rename(tmp.Name(), st.Path)
	if err != nil {
		return errors.Wrap(err, "failed to replace supplicant config")
	}

	return nil
}

func (st *SupplicantStore) Load() (Credentials, error) {
	raw, err := os.ReadFile(st.Path)
	if os.IsNotExist(err) {
		return Credentials{}, ErrNotConfigured
	}
	if err != nil {
		return Credentials{}, errors.Wrap(err, "failed to read supplicant config")
	}

	var creds Credentials
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if value, found := quotedValue(line, "ssid"); found {
			creds.SSID = value
		}
		if value, found := quotedValue(line, "psk"); found {
			creds.Password = value
		}
	}

	if len(creds.SSID) == 0 {
		return Credentials{}, ErrNotConfigured
	}

	return creds, nil
}

func quotedValue(line, key string) (string, bool) {
	rest, found := strings.CutPrefix(line, key+`="`)
	if !found {
		return "", false
	}
	rest, found = strings.CutSuffix(rest, `"`)
	if !found {
		return "", false
	}
	return unescapeQuoted(rest), true
}

func escapeQuoted(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

func unescapeQuoted(value string) string {
	value = strings.ReplaceAll(value, `\"`, `"`)
	return strings.ReplaceAll(value, `\\`, `\`)
}
