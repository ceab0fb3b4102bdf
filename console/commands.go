package console

import (
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/log"

	"github.com/hubertat/riokit/wifi"
)

// Dispatcher executes parsed console lines. Command output goes to the
// console writer only, never to the log; failures an operator cannot act
// on additionally land in the log with details.
type Dispatcher struct {
	out     io.Writer
	status  wifi.StatusProvider
	creds   wifi.CredentialStore
	restart func()
	logger  *log.Logger
}

func NewDispatcher(out io.Writer, status wifi.StatusProvider, creds wifi.CredentialStore, restart func(), logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		out:     out,
		status:  status,
		creds:   creds,
		restart: restart,
		logger:  logger,
	}
}

func (d *Dispatcher) Dispatch(line *Line) {
	switch line.Name {
	case "help":
		d.help(line)
	case "wifi-status":
		d.wifiStatus(line)
	case "wifi-config":
		d.wifiConfig(line)
	default:
		fmt.Fprintf(d.out, "\nUnrecognized command: %s\n", line.Name)
	}
}

func (d *Dispatcher) help(line *Line) {
	if len(line.Args) > 0 {
		fmt.Fprintf(d.out, "\n[%s] Error: Command does not take arguments.\n", line.Name)
		return
	}

	fmt.Fprintf(d.out, "\n[%s] Recognized commands:\n", line.Name)
	fmt.Fprint(d.out, "  help\n")
	fmt.Fprint(d.out, "    List and describe all available commands.\n")
	fmt.Fprint(d.out, "  wifi-status\n")
	fmt.Fprint(d.out, "    Show WiFi connection information.\n")
	fmt.Fprint(d.out, "  wifi-config SSID PASSWORD\n")
	fmt.Fprint(d.out, "    Configure stored WiFi connection information (SSID & mandatory password),\n")
	fmt.Fprint(d.out, "    restarting the service afterwards.\n")
}

func (d *Dispatcher) wifiStatus(line *Line) {
	if len(line.Args) > 0 {
		fmt.Fprintf(d.out, "\n[%s] Error: Command does not take arguments.\n", line.Name)
		return
	}

	status, err := d.status.Status()
	if err != nil {
		fmt.Fprintf(d.out, "\n[%s] Error: Failed to query connection status.\n", line.Name)
		d.logger.Error("failed to query wifi status", "err", err)
		return
	}

	if !status.Connected {
		fmt.Fprintf(d.out, "\n[%s] Disconnected.\n", line.Name)
		return
	}

	fmt.Fprintf(d.out, "\n[%s] Connected to %q:\n", line.Name, status.SSID)
	if status.IP == nil {
		fmt.Fprint(d.out, "  IP Information: Not available.\n")
		return
	}

	gateway := status.Gateway
	if gateway == nil {
		gateway = net.IPv4zero
	}
	fmt.Fprintf(d.out, "  IP Address: %s\n", status.IP)
	fmt.Fprintf(d.out, "  Subnet Mask: %s\n", net.IP(status.Mask))
	fmt.Fprintf(d.out, "  Gateway: %s\n", gateway)
}

func (d *Dispatcher) wifiConfig(line *Line) {
	if len(line.Args) != 2 || len(line.Args[0]) == 0 || len(line.Args[1]) == 0 {
		fmt.Fprintf(d.out, "\n[%s] Error: Command requires two (non-empty) arguments. See help.\n", line.Name)
		return
	}

	ssid, password := line.Args[0], line.Args[1]
	if len(ssid) > wifi.MaxSSIDLength {
		fmt.Fprintf(d.out, "\n[%s] Error: SSID length is too long.\n", line.Name)
		return
	}
	if len(password) > wifi.MaxPasswordLength {
		fmt.Fprintf(d.out, "\n[%s] Error: Password length is too long.\n", line.Name)
		return
	}

	err := d.creds.Save(wifi.Credentials{SSID: ssid, Password: password})
	if err != nil {
		fmt.Fprintf(d.out, "\n[%s] Error: Failed to save configuration.\n", line.Name)
		d.logger.Error("failed to save wifi credentials", "err", err)
		return
	}

	fmt.Fprintf(d.out, "\n[%s] Configuration successful. Restarting...\n", line.Name)
	if d.restart != nil {
		d.restart()
	}
}
