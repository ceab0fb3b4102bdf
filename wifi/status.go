package wifi

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const routeTablePath = "/proc/net/route"

// InterfaceStatus reports connectivity of a wireless interface from what
// the kernel exposes. The ssid is echoed from the credential store: the
// unit knows which network it is configured for, the OS owns the
// association.
type InterfaceStatus struct {
	Interface string
	Creds     CredentialStore
}

func (is *InterfaceStatus) Status() (Status, error) {
	iface, err := net.InterfaceByName(is.Interface)
	if err != nil {
		return Status{}, errors.Wrapf(err, "failed to query interface %s", is.Interface)
	}

	var status Status
	if is.Creds != nil {
		creds, err := is.Creds.Load()
		if err == nil {
			status.SSID = creds.SSID
		}
	}

	if iface.Flags&net.FlagUp == 0 || !operStateUp(is.Interface) {
		return status, nil
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return status, errors.Wrapf(err, "failed to list addresses of %s", is.Interface)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		status.IP = ip4
		status.Mask = ipNet.Mask
		break
	}

	status.Connected = status.IP != nil
	status.Gateway = defaultGateway(is.Interface)

	return status, nil
}

// Connected reports just the boolean connectivity, for the status led
// alert.
func (is *InterfaceStatus) Connected() bool {
	status, err := is.Status()
	return err == nil && status.Connected
}

func operStateUp(ifname string) bool {
	raw, err := os.ReadFile(filepath.Join("/sys/class/net", ifname, "operstate"))
	if err != nil {
		// no sysfs here, the interface flags already said up
		return true
	}
	state := strings.TrimSpace(string(raw))
	return state == "up" || state == "unknown"
}

// defaultGateway digs the interface's default route out of the kernel
// route table. Addresses there are hex encoded little endian.
func defaultGateway(ifname string) net.IP {
	file, err := os.Open(routeTablePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Scan()
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] != ifname || fields[1] != "00000000" {
			continue
		}
		raw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			continue
		}
		return net.IPv4(byte(raw), byte(raw>>8), byte(raw>>16), byte(raw>>24))
	}

	return nil
}
