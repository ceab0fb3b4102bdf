// Package wifi holds the unit's connectivity collaborators: a credential
// store and a status provider. Association itself belongs to the operating
// system; the unit persists credentials and reports what the interface is
// doing.
package wifi

import (
	"net"

	"github.com/pkg/errors"
)

const (
	// MaxSSIDLength is the 802.11 ssid byte limit.
	MaxSSIDLength = 32
	// MaxPasswordLength is the WPA2 passphrase byte limit.
	MaxPasswordLength = 63
)

var ErrNotConfigured = errors.New("wifi credentials not configured")

type Credentials struct {
	SSID     string
	Password string
}

type CredentialStore interface {
	// Load returns ErrNotConfigured when nothing was saved yet.
	Load() (Credentials, error)
	Save(Credentials) error
}

type Status struct {
	Connected bool
	SSID      string
	IP        net.IP
	Mask      net.IPMask
	Gateway   net.IP
}

type StatusProvider interface {
	Status() (Status, error)
}
