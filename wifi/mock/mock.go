package mock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/profile"
)

var DefaultActionSleep = 500 * time.Millisecond

// DefaultPassword unlocks every secured network of the mock.
const DefaultPassword = "Welcome123"

// Sample interfaces.
var (
	IntelID   = uuid.MustParse("ac761785-ed42-11ce-dacb-00bdd0057645")
	BuffaloID = uuid.MustParse("84af3ffe-44d0-44b5-06e9-6a77e21adeda")
	MarvellID = uuid.MustParse("9d2b0228-4d0d-4c23-8b49-01a698857709")
	AtherosID = uuid.MustParse("beb40faf-60c6-46fd-8771-0f096c42aeef")
	TPLinkID  = uuid.MustParse("f58b4e99-a1ab-40b5-d43a-e7537e283dab")
)

// Driver is an in-memory implementation of wifi.Driver for testing and demos.
type Driver struct {
	mu sync.Mutex

	Ifaces   []wifi.Interface
	Networks []wifi.AccessPoint
	Stored   []wifi.Profile

	ScanError       error
	ConnectError    error
	DisconnectError error
	SetProfileError error
	DeleteError     error
	RadioError      error

	// Attempts counts Connect calls.
	Attempts int

	// ActionSleep is a delay before every action, to better emulate a real-world driver for the frontend. Set to 0 during testing.
	ActionSleep time.Duration
}

func ap(id uuid.UUID, ssid string, auth wifi.Authentication, enc wifi.Encryption, quality, channel int, profileName string) wifi.AccessPoint {
	freq := 2407000 + channel*5000
	band := float32(2.4)
	if channel > 14 {
		freq = 5000000 + channel*5000
		band = 5
	}
	return wifi.AccessPoint{
		InterfaceID:     id,
		SSID:            ssid,
		BssType:         wifi.BssInfrastructure,
		SecurityEnabled: enc != wifi.EncryptionNone,
		Authentication:  auth,
		Encryption:      enc,
		ProfileName:     profileName,
		Connectable:     true,
		LinkQuality:     quality,
		Frequency:       freq,
		Band:            band,
		Channel:         channel,
	}
}

func stored(id uuid.UUID, ssid string, auth wifi.Authentication, enc wifi.Encryption, key string) wifi.Profile {
	p := wifi.Profile{
		InterfaceID:    id,
		Name:           ssid,
		SSID:           ssid,
		Type:           wifi.ProfileAllUser,
		BssType:        wifi.BssInfrastructure,
		Authentication: auth,
		Encryption:     enc,
		Key:            key,
	}
	switch enc {
	case wifi.EncryptionWEP:
		p.KeyType = wifi.KeyNetworkKey
	case wifi.EncryptionAES, wifi.EncryptionTKIP:
		p.KeyType = wifi.KeyPassPhrase
	}
	// Enterprise profiles have no document we can generate.
	p.Document, _ = profile.Create(wifi.AccessPoint{
		SSID:            ssid,
		BssType:         wifi.BssInfrastructure,
		SecurityEnabled: enc != wifi.EncryptionNone,
		Authentication:  auth,
		Encryption:      enc,
	}, key)
	return p
}

// New creates a mock driver with a few adapters and networks.
func New() (*Driver, error) {
	ifaces := []wifi.Interface{
		{ID: IntelID, Name: "wlan0", Description: "Intel(R) Centrino(R) Advanced-N 6205", State: wifi.InterfaceConnected, RadioOn: true},
		{ID: BuffaloID, Name: "wlan1", Description: "WLI-UC-GNM", State: wifi.InterfaceDisconnected, RadioOn: true},
		{ID: MarvellID, Name: "wlan2", Description: "Marvel AVASTAR Wireless-AC Network Controller", State: wifi.InterfaceDisconnected, RadioOn: true},
		{ID: AtherosID, Name: "wlan3", Description: "Qualcomm Atheros QCA9377 Wireless Network Adapter", State: wifi.InterfaceDisconnected, RadioOn: false},
		{ID: TPLinkID, Name: "wlan4", Description: "TP-Link TL-POE150S", State: wifi.InterfaceDisconnected, RadioOn: true},
	}

	networks := []wifi.AccessPoint{
		ap(IntelID, "Webgate", wifi.AuthWPA2Personal, wifi.EncryptionAES, 100, 10, "Webgate"),
		ap(IntelID, "KPN Fon", wifi.AuthOpen, wifi.EncryptionNone, 100, 10, "KPN Fon"),
		ap(IntelID, "VFNL-6F2368", wifi.AuthWPA2Personal, wifi.EncryptionAES, 19, 1, ""),
		ap(IntelID, "Sitecom4A711C", wifi.AuthWPA2Personal, wifi.EncryptionAES, 70, 11, ""),
		ap(IntelID, "TMNL-6E34DB", wifi.AuthWPA2Personal, wifi.EncryptionTKIP, 18, 1, "TMNL-6E34DB"),
		ap(IntelID, "VGV7519531B41", wifi.AuthWPAPersonal, wifi.EncryptionTKIP, 52, 2, "VGV7519531B41"),
		ap(IntelID, "Chromcast", wifi.AuthWPA2Personal, wifi.EncryptionAES, 60, 6, ""),
		ap(IntelID, "[Washer] Samsung", wifi.AuthWPA2Personal, wifi.EncryptionAES, 57, 1, ""),
		ap(IntelID, "CityOpenNet", wifi.AuthOpen, wifi.EncryptionWEP, 44, 36, "CityOpenNet"),
		ap(BuffaloID, "H368N9D1BBC", wifi.AuthWPAPersonal, wifi.EncryptionAES, 78, 1, "H368N9D1BBC"),
		ap(BuffaloID, "SecurityXploded", wifi.AuthWPA2Personal, wifi.EncryptionTKIP, 64, 6, ""),
		ap(BuffaloID, "EuroNet", wifi.AuthOpen, wifi.EncryptionWEP, 31, 11, "EuroNet"),
		ap(BuffaloID, "ShopNet", wifi.AuthWPAEnterprise, wifi.EncryptionTKIP, 25, 44, "ShopNet"),
		ap(MarvellID, "Free Public WiFi", wifi.AuthOpen, wifi.EncryptionNone, 88, 1, ""),
		ap(AtherosID, "AmazonNet", wifi.AuthWPA2Personal, wifi.EncryptionAES, 66, 48, "AmazonNet"),
		ap(TPLinkID, "fontysWPA", wifi.AuthOpen, wifi.EncryptionWEP, 90, 6, "fontysWPA"),
		ap(TPLinkID, "OpenOfficeNet", wifi.AuthOpen, wifi.EncryptionNone, 35, 11, "OpenOfficeNet"),
	}
	networks[0].IsConnected = true

	profiles := []wifi.Profile{
		stored(IntelID, "Webgate", wifi.AuthWPA2Personal, wifi.EncryptionAES, "Saida0407"),
		stored(IntelID, "KPN Fon", wifi.AuthOpen, wifi.EncryptionNone, ""),
		stored(IntelID, "TMNL-6E34DB", wifi.AuthWPA2Personal, wifi.EncryptionTKIP, "tmnl2018!"),
		stored(IntelID, "VGV7519531B41", wifi.AuthWPAPersonal, wifi.EncryptionTKIP, "vgv75195"),
		stored(IntelID, "CityOpenNet", wifi.AuthOpen, wifi.EncryptionWEP, "3132333435"),
		stored(BuffaloID, "H368N9D1BBC", wifi.AuthWPAPersonal, wifi.EncryptionAES, "h368n9d1"),
		stored(BuffaloID, "EuroNet", wifi.AuthOpen, wifi.EncryptionWEP, "6575726f6e6574313233343536"),
		stored(BuffaloID, "ShopNet", wifi.AuthWPAEnterprise, wifi.EncryptionTKIP, ""),
		stored(AtherosID, "AmazonNet", wifi.AuthWPA2Personal, wifi.EncryptionAES, "prime4ever"),
		stored(TPLinkID, "fontysWPA", wifi.AuthOpen, wifi.EncryptionWEP, "666f6e7479"),
		stored(TPLinkID, "OpenOfficeNet", wifi.AuthOpen, wifi.EncryptionNone, ""),
	}
	profiles[0].IsConnected = true
	next := map[uuid.UUID]int{}
	for i := range profiles {
		profiles[i].Position = next[profiles[i].InterfaceID]
		next[profiles[i].InterfaceID]++
	}

	return &Driver{
		Ifaces:      ifaces,
		Networks:    networks,
		Stored:      profiles,
		ActionSleep: DefaultActionSleep,
	}, nil
}

func (m *Driver) sleep(ctx context.Context) error {
	if m.ActionSleep <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.ActionSleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Driver) iface(id uuid.UUID) (*wifi.Interface, error) {
	for i := range m.Ifaces {
		if m.Ifaces[i].ID == id {
			return &m.Ifaces[i], nil
		}
	}
	return nil, fmt.Errorf("interface %s: %w", id, wifi.ErrNotFound)
}

// profilesOf returns the profiles of one interface in position order.
func (m *Driver) profilesOf(id uuid.UUID) []wifi.Profile {
	var r []wifi.Profile
	for _, p := range m.Stored {
		if p.InterfaceID == id {
			r = append(r, p)
		}
	}
	slices.SortStableFunc(r, func(a, b wifi.Profile) int { return a.Position - b.Position })
	return r
}

func (m *Driver) setProfilesOf(id uuid.UUID, ps []wifi.Profile) {
	m.Stored = slices.DeleteFunc(m.Stored, func(p wifi.Profile) bool { return p.InterfaceID == id })
	m.Stored = append(m.Stored, ps...)
}

func (m *Driver) Interfaces(ctx context.Context) ([]wifi.Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Ifaces), nil
}

func (m *Driver) Scan(ctx context.Context, timeout time.Duration) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ScanError != nil {
		return m.ScanError
	}
	if !slices.ContainsFunc(m.Ifaces, func(i wifi.Interface) bool { return i.RadioOn }) {
		return wifi.ErrWirelessDisabled
	}
	// Signal strength drifts between scans.
	for i := range m.Networks {
		if !m.Networks[i].IsConnected {
			m.Networks[i].LinkQuality = rand.IntN(70) + 30
		}
	}
	return nil
}

func (m *Driver) AccessPoints(ctx context.Context) ([]wifi.AccessPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var r []wifi.AccessPoint
	for _, n := range m.Networks {
		iface, err := m.iface(n.InterfaceID)
		if err != nil || !iface.RadioOn {
			continue
		}
		r = append(r, n)
	}
	return r, nil
}

func (m *Driver) Profiles(ctx context.Context) ([]wifi.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := slices.Clone(m.Stored)
	wifi.SortProfiles(r)
	return r, nil
}

// disconnect clears the connection state of one interface.
func (m *Driver) disconnect(id uuid.UUID) {
	for i := range m.Networks {
		if m.Networks[i].InterfaceID == id {
			m.Networks[i].IsConnected = false
		}
	}
	for i := range m.Stored {
		if m.Stored[i].InterfaceID == id {
			m.Stored[i].IsConnected = false
		}
	}
	if iface, err := m.iface(id); err == nil {
		iface.State = wifi.InterfaceDisconnected
	}
}

// setProfile stores doc on the interface. A connected profile cannot be
// replaced.
func (m *Driver) setProfile(id uuid.UUID, doc string) (wifi.Profile, error) {
	p, err := profile.Parse(doc)
	if err != nil {
		return p, err
	}
	p.InterfaceID = id
	p.Type = wifi.ProfileAllUser
	p.Document = doc

	ps := m.profilesOf(id)
	if i := slices.IndexFunc(ps, func(q wifi.Profile) bool { return q.Name == p.Name }); i >= 0 && ps[i].IsConnected {
		return p, fmt.Errorf("profile %q is in use: %w", p.Name, wifi.ErrOperationFailed)
	}
	m.setProfilesOf(id, wifi.UpsertProfile(ps, p))
	return p, nil
}

func (m *Driver) Connect(ctx context.Context, req wifi.ConnectRequest) (bool, error) {
	if err := m.sleep(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Attempts++
	if m.ConnectError != nil {
		return false, m.ConnectError
	}
	iface, err := m.iface(req.InterfaceID)
	if err != nil {
		return false, err
	}
	if !iface.RadioOn {
		return false, wifi.ErrWirelessDisabled
	}
	idx := slices.IndexFunc(m.Networks, func(n wifi.AccessPoint) bool {
		return n.InterfaceID == req.InterfaceID && n.SSID == req.SSID
	})
	if idx < 0 {
		return false, fmt.Errorf("network %q: %w", req.SSID, wifi.ErrNotFound)
	}

	m.disconnect(req.InterfaceID)
	p, err := m.setProfile(req.InterfaceID, req.Document)
	if err != nil {
		return false, err
	}
	network := &m.Networks[idx]
	if network.PasswordRequired() && p.Key != DefaultPassword {
		return false, nil
	}

	for i := range m.Stored {
		if m.Stored[i].InterfaceID == req.InterfaceID && m.Stored[i].Name == p.Name {
			m.Stored[i].IsConnected = true
		}
	}
	network.IsConnected = true
	network.ProfileName = p.Name
	iface.State = wifi.InterfaceConnected
	return true, nil
}

func (m *Driver) Disconnect(ctx context.Context, interfaceID uuid.UUID, timeout time.Duration) (bool, error) {
	if err := m.sleep(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DisconnectError != nil {
		return false, m.DisconnectError
	}
	if _, err := m.iface(interfaceID); err != nil {
		return false, err
	}
	m.disconnect(interfaceID)
	return true, nil
}

func (m *Driver) SetProfile(ctx context.Context, interfaceID uuid.UUID, document string) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetProfileError != nil {
		return m.SetProfileError
	}
	if _, err := m.iface(interfaceID); err != nil {
		return err
	}
	_, err := m.setProfile(interfaceID, document)
	return err
}

func (m *Driver) SetProfilePosition(ctx context.Context, p wifi.Profile, position int) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, err := wifi.MoveProfile(m.profilesOf(p.InterfaceID), p.Name, position)
	if err != nil {
		return err
	}
	m.setProfilesOf(p.InterfaceID, ps)
	return nil
}

func (m *Driver) DeleteProfile(ctx context.Context, p wifi.Profile) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteError != nil {
		return m.DeleteError
	}
	ps, err := wifi.RemoveProfile(m.profilesOf(p.InterfaceID), p.Name)
	if err != nil {
		return err
	}
	m.setProfilesOf(p.InterfaceID, ps)
	for i := range m.Networks {
		if m.Networks[i].InterfaceID == p.InterfaceID && m.Networks[i].ProfileName == p.Name {
			m.Networks[i].ProfileName = ""
		}
	}
	return nil
}

func (m *Driver) SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RadioError != nil {
		return m.RadioError
	}
	iface, err := m.iface(interfaceID)
	if err != nil {
		return err
	}
	iface.RadioOn = on
	if !on {
		m.disconnect(interfaceID)
		iface.State = wifi.InterfaceNotReady
	}
	return nil
}
