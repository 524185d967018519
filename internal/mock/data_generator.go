package mock

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

const (
	a2dpSinkUUID  = "0000110b-0000-1000-8000-00805f9b34fb"
	headsetUUID   = "00001108-0000-1000-8000-00805f9b34fb"
	batteryUUID   = "0000180f-0000-1000-8000-00805f9b34fb"
	heartRateUUID = "0000180d-0000-1000-8000-00805f9b34fb"
	hidUUID       = "00001812-0000-1000-8000-00805f9b34fb"
)

// deviceProfile is a template for one kind of advertiser.
type deviceProfile struct {
	Name          string
	CompanyID     uint16
	NameInPayload bool // advertise the name only inside manufacturer data
	Anonymous     bool // no name anywhere
	Appearance    uint16
	ServiceUUIDs  []string
	Audio         bool
}

// Realistic advertisers seen around a living room.
var profiles = []deviceProfile{
	{Name: "JBL Flip 5", CompanyID: 0x0057, ServiceUUIDs: []string{a2dpSinkUUID}, Audio: true},
	{Name: "Bose Home Speaker 500", CompanyID: 0x009E, Appearance: 0x0841, ServiceUUIDs: []string{a2dpSinkUUID}, Audio: true},
	{Name: "Sonos Move", CompanyID: 0x05A7, ServiceUUIDs: []string{a2dpSinkUUID}, Audio: true},
	{Name: "Marshall Emberton", CompanyID: 0x000A, ServiceUUIDs: []string{a2dpSinkUUID}, Audio: true},
	{Name: "WH-1000XM4 Headphones", CompanyID: 0x012D, Appearance: 0x0943, ServiceUUIDs: []string{headsetUUID}, Audio: true},
	{Name: "AirPods", CompanyID: 0x004C, NameInPayload: true, Appearance: 0x0941, Audio: true},
	{Name: "Soundbar 700", CompanyID: 0x009E, Appearance: 0x0842, Audio: true},
	{Name: "Galaxy S23 Phone", CompanyID: 0x0075, Appearance: 0x0040},
	{Name: "Pixel Watch", CompanyID: 0x00E0, Appearance: 0x00C0, ServiceUUIDs: []string{batteryUUID}},
	{Name: "MX Keys Keyboard", CompanyID: 0x0046, Appearance: 0x03C1, ServiceUUIDs: []string{hidUUID}},
	{Name: "Living Room TV", CompanyID: 0x00C4, Appearance: 0x0140},
	{Name: "Polar H10 Fitness", CompanyID: 0x006B, Appearance: 0x0340, ServiceUUIDs: []string{heartRateUUID}},
	{Name: "Hue Bulb", CompanyID: 0x0075},
	{Name: "Temperature Sensor", CompanyID: 0x0499},
	{CompanyID: 0x004C, Anonymous: true},
	{CompanyID: 0x0006, Anonymous: true},
	{Anonymous: true},
}

// MockDevice is one simulated advertiser.
type MockDevice struct {
	Address  string
	Profile  deviceProfile
	BaseRSSI int
	LastSeen time.Time
}

// DataGenerator produces synthetic BLE advertisements.
type DataGenerator struct {
	mu      sync.Mutex
	rand    *rand.Rand
	devices map[string]*MockDevice
}

// NewDataGenerator creates a generator. The same seed yields the same devices.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rand:    rand.New(rand.NewSource(seed)),
		devices: make(map[string]*MockDevice),
	}
}

// generateMAC returns a random static address. Callers hold g.mu.
func (g *DataGenerator) generateMAC() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		g.rand.Intn(256)|0xC0, // static random address: top two bits set
		g.rand.Intn(256), g.rand.Intn(256),
		g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
}

// GenerateDevice adds one device built from a random profile, or from the
// audio profiles only when audioOnly is set.
func (g *DataGenerator) GenerateDevice(audioOnly bool) *MockDevice {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateLocked(audioOnly)
}

func (g *DataGenerator) generateLocked(audioOnly bool) *MockDevice {
	candidates := profiles
	if audioOnly {
		candidates = nil
		for _, p := range profiles {
			if p.Audio {
				candidates = append(candidates, p)
			}
		}
	}

	d := &MockDevice{
		Address:  g.generateMAC(),
		Profile:  candidates[g.rand.Intn(len(candidates))],
		BaseRSSI: -35 - g.rand.Intn(55), // -35 to -89 dBm
		LastSeen: time.Now(),
	}
	g.devices[d.Address] = d
	return d
}

// GenerateScenario populates the generator. Known scenarios: basic, crowded, speakers.
func (g *DataGenerator) GenerateScenario(scenario string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch scenario {
	case "crowded":
		for i := 0; i < 40; i++ {
			g.generateLocked(false)
		}
	case "speakers":
		for i := 0; i < 6; i++ {
			g.generateLocked(true)
		}
	default:
		// basic: every profile once
		for _, p := range profiles {
			d := &MockDevice{Address: g.generateMAC(), Profile: p, BaseRSSI: -40 - g.rand.Intn(45), LastSeen: time.Now()}
			g.devices[d.Address] = d
		}
	}
}

// Advertisements returns one report per device with jittered RSSI, ordered by address.
func (g *DataGenerator) Advertisements() []domain.RawAdvertisement {
	g.mu.Lock()
	defer g.mu.Unlock()

	addrs := make([]string, 0, len(g.devices))
	for a := range g.devices {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	out := make([]domain.RawAdvertisement, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, g.advertisementLocked(g.devices[a]))
	}
	return out
}

func (g *DataGenerator) advertisementLocked(d *MockDevice) domain.RawAdvertisement {
	p := d.Profile
	rssi := d.BaseRSSI + g.rand.Intn(7) - 3
	adv := domain.RawAdvertisement{
		Address:      d.Address,
		RSSI:         &rssi,
		ServiceUUIDs: append([]string(nil), p.ServiceUUIDs...),
	}

	if p.CompanyID != 0 || !p.Anonymous {
		payload := []byte{0x02, 0x15}
		if p.NameInPayload {
			payload = append(payload, p.Name...)
		} else {
			payload = append(payload, byte(g.rand.Intn(256)), 0x00, 0xFF)
		}
		adv.ManufacturerData = map[uint16][]byte{p.CompanyID: payload}
	}
	if !p.Anonymous && !p.NameInPayload {
		adv.LocalName = p.Name
	}
	if p.Appearance != 0 {
		code := p.Appearance
		adv.Appearance = &code
	}
	return adv
}

// GetDevices returns all devices
func (g *DataGenerator) GetDevices() []*MockDevice {
	g.mu.Lock()
	defer g.mu.Unlock()
	devices := make([]*MockDevice, 0, len(g.devices))
	for _, d := range g.devices {
		devices = append(devices, d)
	}
	return devices
}

// SimulateActivity simulates devices appearing and disappearing
func (g *DataGenerator) SimulateActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 10% chance to add a new device
	if g.rand.Float32() < 0.1 {
		g.generateLocked(false)
	}

	// 5% chance to remove a device
	if g.rand.Float32() < 0.05 && len(g.devices) > 5 {
		addrs := make([]string, 0, len(g.devices))
		for a := range g.devices {
			addrs = append(addrs, a)
		}
		sort.Strings(addrs)
		delete(g.devices, addrs[g.rand.Intn(len(addrs))])
	}

	now := time.Now()
	for _, d := range g.devices {
		d.LastSeen = now
	}
}
