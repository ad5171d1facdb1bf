package iwd

import (
	"sync"

	"github.com/godbus/dbus/v5"
)

const agentPath = dbus.ObjectPath("/wifirecover/agent")

var errAgentCanceled = dbus.NewError("net.connman.iwd.Agent.Error.Canceled", nil)

// agent answers iwd's passphrase requests with the key of the attempt in
// progress.
type agent struct {
	mu         sync.Mutex
	network    dbus.ObjectPath
	passphrase string
}

// expect arms the agent for one connection to network.
func (a *agent) expect(network dbus.ObjectPath, passphrase string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.network, a.passphrase = network, passphrase
}

func (a *agent) reset() { a.expect("", "") }

func (a *agent) Release() *dbus.Error { return nil }

func (a *agent) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if network != a.network || a.network == "" {
		return "", errAgentCanceled
	}
	return a.passphrase, nil
}

func (a *agent) RequestPrivateKeyPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	return "", errAgentCanceled
}

func (a *agent) RequestUserNameAndPassword(network dbus.ObjectPath) (string, string, *dbus.Error) {
	return "", "", errAgentCanceled
}

func (a *agent) RequestUserPassword(network dbus.ObjectPath, user string) (string, *dbus.Error) {
	return "", errAgentCanceled
}

func (a *agent) Cancel(reason string) *dbus.Error {
	a.reset()
	return nil
}
