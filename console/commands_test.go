package console

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/hubertat/riokit/wifi"
)

type stubStatus struct {
	status wifi.Status
	err    error
}

func (ss *stubStatus) Status() (wifi.Status, error) {
	return ss.status, ss.err
}

type stubCreds struct {
	saved   []wifi.Credentials
	saveErr error
}

func (sc *stubCreds) Load() (wifi.Credentials, error) {
	if len(sc.saved) == 0 {
		return wifi.Credentials{}, wifi.ErrNotConfigured
	}
	return sc.saved[len(sc.saved)-1], nil
}

func (sc *stubCreds) Save(creds wifi.Credentials) error {
	if sc.saveErr != nil {
		return sc.saveErr
	}
	sc.saved = append(sc.saved, creds)
	return nil
}

type dispatchFixture struct {
	out       *strings.Builder
	status    *stubStatus
	creds     *stubCreds
	restarted int
	dispatch  *Dispatcher
}

func newDispatchFixture() *dispatchFixture {
	fixture := &dispatchFixture{
		out:    &strings.Builder{},
		status: &stubStatus{},
		creds:  &stubCreds{},
	}
	logger := log.New(&strings.Builder{})
	fixture.dispatch = NewDispatcher(fixture.out, fixture.status, fixture.creds,
		func() { fixture.restarted++ }, logger)
	return fixture
}

func TestDispatchUnknownCommand(t *testing.T) {
	fixture := newDispatchFixture()

	fixture.dispatch.Dispatch(&Line{Name: "reboot"})

	if !strings.Contains(fixture.out.String(), "Unrecognized command: reboot") {
		t.Errorf("got %q", fixture.out.String())
	}
}

func TestDispatchHelpListsCommands(t *testing.T) {
	fixture := newDispatchFixture()

	fixture.dispatch.Dispatch(&Line{Name: "help"})

	output := fixture.out.String()
	for _, command := range []string{"help", "wifi-status", "wifi-config"} {
		if !strings.Contains(output, command) {
			t.Errorf("help should mention %s, got %q", command, output)
		}
	}
}

func TestDispatchHelpRejectsArguments(t *testing.T) {
	fixture := newDispatchFixture()

	fixture.dispatch.Dispatch(&Line{Name: "help", Args: []string{"me"}})

	if !strings.Contains(fixture.out.String(), "does not take arguments") {
		t.Errorf("got %q", fixture.out.String())
	}
}

func TestDispatchWifiStatusDisconnected(t *testing.T) {
	fixture := newDispatchFixture()

	fixture.dispatch.Dispatch(&Line{Name: "wifi-status"})

	if !strings.Contains(fixture.out.String(), "Disconnected.") {
		t.Errorf("got %q", fixture.out.String())
	}
}

func TestDispatchWifiStatusConnected(t *testing.T) {
	fixture := newDispatchFixture()
	fixture.status.status = wifi.Status{
		Connected: true,
		SSID:      "HomeNet",
		IP:        net.IPv4(192, 168, 1, 20).To4(),
		Mask:      net.CIDRMask(24, 32),
		Gateway:   net.IPv4(192, 168, 1, 1).To4(),
	}

	fixture.dispatch.Dispatch(&Line{Name: "wifi-status"})

	output := fixture.out.String()
	for _, want := range []string{`"HomeNet"`, "192.168.1.20", "255.255.255.0", "192.168.1.1"} {
		if !strings.Contains(output, want) {
			t.Errorf("status should contain %s, got %q", want, output)
		}
	}
}

func TestDispatchWifiStatusQueryFailure(t *testing.T) {
	fixture := newDispatchFixture()
	fixture.status.err = errors.New("no such interface")

	fixture.dispatch.Dispatch(&Line{Name: "wifi-status"})

	if !strings.Contains(fixture.out.String(), "Failed to query connection status.") {
		t.Errorf("got %q", fixture.out.String())
	}
}

func TestDispatchWifiConfigSavesAndRestarts(t *testing.T) {
	fixture := newDispatchFixture()

	fixture.dispatch.Dispatch(&Line{Name: "wifi-config", Args: []string{"My Network", "secret"}})

	if len(fixture.creds.saved) != 1 {
		t.Fatalf("got %d saves want 1", len(fixture.creds.saved))
	}
	saved := fixture.creds.saved[0]
	if saved.SSID != "My Network" || saved.Password != "secret" {
		t.Errorf("saved %+v", saved)
	}
	if fixture.restarted != 1 {
		t.Errorf("got %d restarts want 1", fixture.restarted)
	}
	if !strings.Contains(fixture.out.String(), "Configuration successful") {
		t.Errorf("got %q", fixture.out.String())
	}
}

func TestDispatchWifiConfigArity(t *testing.T) {
	cases := [][]string{
		nil,
		{"onlyssid"},
		{"", "password"},
		{"ssid", ""},
	}

	for _, args := range cases {
		fixture := newDispatchFixture()
		fixture.dispatch.Dispatch(&Line{Name: "wifi-config", Args: args})

		if len(fixture.creds.saved) != 0 {
			t.Errorf("args %q: nothing should be saved", args)
		}
		if fixture.restarted != 0 {
			t.Errorf("args %q: no restart expected", args)
		}
		if !strings.Contains(fixture.out.String(), "requires two (non-empty) arguments") {
			t.Errorf("args %q: got %q", args, fixture.out.String())
		}
	}
}

func TestDispatchWifiConfigLengthBounds(t *testing.T) {
	fixture := newDispatchFixture()
	fixture.dispatch.Dispatch(&Line{Name: "wifi-config",
		Args: []string{strings.Repeat("s", wifi.MaxSSIDLength+1), "pw"}})
	if !strings.Contains(fixture.out.String(), "SSID length is too long.") {
		t.Errorf("got %q", fixture.out.String())
	}

	fixture = newDispatchFixture()
	fixture.dispatch.Dispatch(&Line{Name: "wifi-config",
		Args: []string{"net", strings.Repeat("p", wifi.MaxPasswordLength+1)}})
	if !strings.Contains(fixture.out.String(), "Password length is too long.") {
		t.Errorf("got %q", fixture.out.String())
	}
	if len(fixture.creds.saved) != 0 || fixture.restarted != 0 {
		t.Error("rejected config must not save or restart")
	}
}

func TestDispatchWifiConfigSaveFailureSkipsRestart(t *testing.T) {
	fixture := newDispatchFixture()
	fixture.creds.saveErr = errors.New("disk full")

	fixture.dispatch.Dispatch(&Line{Name: "wifi-config", Args: []string{"net", "pw"}})

	if fixture.restarted != 0 {
		t.Error("failed save must not schedule a restart")
	}
	if !strings.Contains(fixture.out.String(), "Failed to save configuration.") {
		t.Errorf("got %q", fixture.out.String())
	}
}

// TestParserFeedsDispatcher walks a whole console session through parser
// and dispatcher together.
func TestParserFeedsDispatcher(t *testing.T) {
	fixture := newDispatchFixture()
	parser := NewParser(fixture.out)

	session := "help\nwifi-config \"My Network\" secret\n"
	for i := 0; i < len(session); i++ {
		if line := parser.Feed(session[i]); line != nil {
			fixture.dispatch.Dispatch(line)
		}
	}

	if len(fixture.creds.saved) != 1 {
		t.Fatalf("got %d saves want 1", len(fixture.creds.saved))
	}
	if fixture.creds.saved[0].SSID != "My Network" {
		t.Errorf("saved ssid %q", fixture.creds.saved[0].SSID)
	}
	if !strings.Contains(fixture.out.String(), "Recognized commands:") {
		t.Error("help output missing")
	}
}
