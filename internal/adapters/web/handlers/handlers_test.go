package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/configflow"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/discovery"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/speaker"
)

func request(method, target string, body interface{}, vars map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func speakerDevice() domain.SeenDevice {
	var d domain.SeenDevice
	d.Address = "AA:BB:CC:DD:EE:FF"
	d.DisplayName = "JBL Charge Speaker"
	d.NameSource = domain.NameFromLocalName
	d.DeviceType = domain.DeviceTypeSpeaker
	d.Icon = domain.DeviceTypeSpeaker.Icon()
	d.RSSI = domain.IntPtr(-55)
	return d
}

func TestParseDeviceFilter(t *testing.T) {
	tests := []struct {
		query   string
		want    domain.DeviceFilter
		wantErr bool
	}{
		{"", domain.DeviceFilter{}, false},
		{"type=Speaker&audio=true", domain.DeviceFilter{Type: domain.DeviceTypeSpeaker, AudioOnly: true}, false},
		{"min_rssi=-70", domain.DeviceFilter{MinRSSI: domain.IntPtr(-70)}, false},
		{"type=Toaster", domain.DeviceFilter{}, true},
		{"min_rssi=loud", domain.DeviceFilter{}, true},
		{"audio=maybe", domain.DeviceFilter{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ParseDeviceFilter(httptest.NewRequest(http.MethodGet, "/api/devices?"+tt.query, nil))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScanTimeout(t *testing.T) {
	def := 10 * time.Second
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", def, false},
		{"5", 5 * time.Second, false},
		{"2500ms", 2500 * time.Millisecond, false},
		{"0", 0, true},
		{"-3s", 0, true},
		{"2m", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseScanTimeout(tt.in, def)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCompanyID(t *testing.T) {
	for in, want := range map[string]uint16{"76": 76, "0x004C": 0x004C, "0X0057": 0x57} {
		got, err := ParseCompanyID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "apple", "70000", "0x"} {
		_, err := ParseCompanyID(bad)
		assert.Error(t, err, bad)
	}
}

func TestDeviceHandler_List(t *testing.T) {
	svc := new(MockDiscoveryService)
	svc.On("Devices", domain.DeviceFilter{AudioOnly: true}).Return([]domain.SeenDevice{speakerDevice()})
	svc.On("Devices", domain.DeviceFilter{}).Return(nil)
	h := NewDeviceHandler(svc, 0)

	rr := httptest.NewRecorder()
	h.HandleList(rr, request(http.MethodGet, "/api/devices?audio=1", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Count   int                 `json:"count"`
		Devices []domain.SeenDevice `json:"devices"`
	}
	decode(t, rr, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "mdi:speaker", string(body.Devices[0].Icon))

	rr = httptest.NewRecorder()
	h.HandleList(rr, request(http.MethodGet, "/api/devices", nil, nil))
	assert.Contains(t, rr.Body.String(), `"devices":[]`)

	rr = httptest.NewRecorder()
	h.HandleList(rr, request(http.MethodGet, "/api/devices?type=nope", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeviceHandler_Get(t *testing.T) {
	svc := new(MockDiscoveryService)
	svc.On("Device", "AA:BB:CC:DD:EE:FF").Return(speakerDevice(), true)
	svc.On("Device", "11:22:33:44:55:66").Return(domain.SeenDevice{}, false)
	h := NewDeviceHandler(svc, 0)

	rr := httptest.NewRecorder()
	h.HandleGet(rr, request(http.MethodGet, "/", nil, map[string]string{"address": "aa-bb-cc-dd-ee-ff"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "JBL Charge Speaker")

	rr = httptest.NewRecorder()
	h.HandleGet(rr, request(http.MethodGet, "/", nil, map[string]string{"address": "11:22:33:44:55:66"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeviceHandler_Scan(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		timeout time.Duration
		err     error
		status  int
	}{
		{"default timeout", "", 7 * time.Second, nil, http.StatusOK},
		{"explicit timeout", "?timeout=3", 3 * time.Second, nil, http.StatusOK},
		{"in progress", "", 7 * time.Second, discovery.ErrScanInProgress, http.StatusConflict},
		{"no scanner", "", 7 * time.Second, discovery.ErrNoScanner, http.StatusServiceUnavailable},
		{"scanner failure", "", 7 * time.Second, errors.New("adapter gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDiscoveryService)
			svc.On("Scan", tt.timeout).Return(domain.ScanSummary{Source: "mock", Seen: 4, New: 2}, tt.err)
			h := NewDeviceHandler(svc, 7*time.Second)

			rr := httptest.NewRecorder()
			h.HandleScan(rr, request(http.MethodPost, "/api/scan"+tt.query, nil, nil))
			assert.Equal(t, tt.status, rr.Code)
			svc.AssertExpectations(t)
			if tt.status == http.StatusOK {
				var summary domain.ScanSummary
				decode(t, rr, &summary)
				assert.Equal(t, 2, summary.New)
			}
		})
	}

	svc := new(MockDiscoveryService)
	rr := httptest.NewRecorder()
	NewDeviceHandler(svc, 0).HandleScan(rr, request(http.MethodPost, "/api/scan?timeout=forever", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Scan", mock.Anything)
}

func TestDeviceHandler_Manufacturers(t *testing.T) {
	svc := new(MockDiscoveryService)
	svc.On("LookupManufacturer", uint16(0x004C)).Return("Apple, Inc.", true)
	svc.On("LookupManufacturer", uint16(0xFFFE)).Return("", false)
	svc.On("RefreshRegistry").Return(3400, nil).Once()
	svc.On("RefreshRegistry").Return(0, errors.New("download failed"))
	h := NewDeviceHandler(svc, 0)

	rr := httptest.NewRecorder()
	h.HandleManufacturer(rr, request(http.MethodGet, "/", nil, map[string]string{"id": "0x004C"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Apple, Inc.")

	rr = httptest.NewRecorder()
	h.HandleManufacturer(rr, request(http.MethodGet, "/", nil, map[string]string{"id": "65534"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleManufacturer(rr, request(http.MethodGet, "/", nil, map[string]string{"id": "apple"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleRefreshManufacturers(rr, request(http.MethodPost, "/", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"companies":3400`)

	rr = httptest.NewRecorder()
	h.HandleRefreshManufacturers(rr, request(http.MethodPost, "/", nil, nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestFlowHandler_Steps(t *testing.T) {
	flows := new(MockFlowService)
	started := domain.ConfigFlow{ID: "f1", Step: domain.StepUser, Options: []domain.DeviceOption{{Address: "AA:BB:CC:DD:EE:FF"}}}
	named := domain.ConfigFlow{ID: "f1", Step: domain.StepName, Address: "AA:BB:CC:DD:EE:FF", SuggestedName: "JBL"}
	created := domain.ConfigFlow{ID: "f1", Step: domain.StepCreateEntry, Entry: &domain.SpeakerEntry{ID: "e1", Name: "Kitchen"}}
	flows.On("Start").Return(started, nil)
	flows.On("SelectDevice", "f1", "AA:BB:CC:DD:EE:FF").Return(named, nil)
	flows.On("SetName", "f1", "Kitchen").Return(created, nil)
	flows.On("Get", "f1").Return(named, nil)
	flows.On("Abort", "f1").Return(nil)
	h := NewFlowHandler(flows, nil)

	rr := httptest.NewRecorder()
	h.HandleStart(rr, request(http.MethodPost, "/api/flows", nil, nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"flow_id":"f1"`)
	assert.Contains(t, rr.Body.String(), `"step":"user"`)

	rr = httptest.NewRecorder()
	h.HandleSelectDevice(rr, request(http.MethodPost, "/", map[string]string{"address": "AA:BB:CC:DD:EE:FF"}, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"suggested_name":"JBL"`)

	rr = httptest.NewRecorder()
	h.HandleGet(rr, request(http.MethodGet, "/", nil, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleSetName(rr, request(http.MethodPost, "/", map[string]string{"name": "Kitchen"}, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"step":"create_entry"`)

	rr = httptest.NewRecorder()
	h.HandleAbort(rr, request(http.MethodDelete, "/", nil, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	flows.AssertExpectations(t)
}

func TestFlowHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"no devices", configflow.ErrNoDevicesFound, http.StatusNotFound, "no_devices_found"},
		{"already configured", fmt.Errorf("%w: AA", configflow.ErrAlreadyConfigured), http.StatusConflict, "already_configured"},
		{"unknown device", configflow.ErrDeviceNotFound, http.StatusNotFound, "device_not_found"},
		{"bad name", configflow.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
		{"wrong step", configflow.ErrWrongStep, http.StatusConflict, ""},
		{"expired", configflow.ErrFlowNotFound, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flows := new(MockFlowService)
			flows.On("SelectDevice", "f1", "AA").Return(domain.ConfigFlow{}, tt.err)
			h := NewFlowHandler(flows, nil)

			rr := httptest.NewRecorder()
			h.HandleSelectDevice(rr, request(http.MethodPost, "/", map[string]string{"address": "AA"}, map[string]string{"id": "f1"}))
			assert.Equal(t, tt.status, rr.Code)

			var body map[string]string
			decode(t, rr, &body)
			assert.Equal(t, tt.reason, body["reason"])
		})
	}
}

func TestFlowHandler_BadBodies(t *testing.T) {
	h := NewFlowHandler(new(MockFlowService), nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	h.HandleSelectDevice(rr, mux.SetURLVars(req, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleSelectDevice(rr, request(http.MethodPost, "/", map[string]string{}, map[string]string{"id": "f1"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFlowHandler_Entries(t *testing.T) {
	flows := new(MockFlowService)
	speakers := new(MockSpeakerService)
	entry := domain.SpeakerEntry{ID: "e1", Address: "AA:BB:CC:DD:EE:FF", Name: "Kitchen"}
	flows.On("Entries").Return([]domain.SpeakerEntry{entry}, nil)
	flows.On("RemoveEntry", "e1").Return(entry, nil)
	flows.On("RemoveEntry", "e2").Return(domain.SpeakerEntry{}, domain.ErrEntryNotFound)
	speakers.On("Forget", "AA:BB:CC:DD:EE:FF").Return()
	h := NewFlowHandler(flows, speakers)

	rr := httptest.NewRecorder()
	h.HandleListEntries(rr, request(http.MethodGet, "/api/entries", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":1`)

	rr = httptest.NewRecorder()
	h.HandleRemoveEntry(rr, request(http.MethodDelete, "/", nil, map[string]string{"id": "e1"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	speakers.AssertCalled(t, "Forget", "AA:BB:CC:DD:EE:FF")

	rr = httptest.NewRecorder()
	h.HandleRemoveEntry(rr, request(http.MethodDelete, "/", nil, map[string]string{"id": "e2"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSpeakerHandler_Actions(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:FF"
	connected := domain.SpeakerStatus{Address: addr, State: domain.LinkConnected, Playback: domain.PlaybackIdle}

	for _, action := range []string{"pair", "connect", "disconnect", "reconnect", "turn_on", "turn_off"} {
		t.Run(action, func(t *testing.T) {
			svc := new(MockSpeakerService)
			svc.On("op", action, addr).Return(connected, nil)
			h := NewSpeakerHandler(svc)

			rr := httptest.NewRecorder()
			h.HandleAction(rr, request(http.MethodPost, "/", nil, map[string]string{"address": "aa:bb:cc:dd:ee:ff", "action": action}))
			assert.Equal(t, http.StatusOK, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSpeakerHandler_Errors(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:FF"
	failed := domain.SpeakerStatus{Address: addr, State: domain.LinkFailed, LastError: "refused"}

	svc := new(MockSpeakerService)
	svc.On("op", "disconnect", addr).Return(failed, fmt.Errorf("%w: cannot disconnect while failed", speaker.ErrInvalidTransition))
	svc.On("op", "connect", addr).Return(failed, speaker.ErrOperationInProgress)
	h := NewSpeakerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleAction(rr, request(http.MethodPost, "/", nil, map[string]string{"address": addr, "action": "disconnect"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"failed"`)

	rr = httptest.NewRecorder()
	h.HandleAction(rr, request(http.MethodPost, "/", nil, map[string]string{"address": addr, "action": "connect"}))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleAction(rr, request(http.MethodPost, "/", nil, map[string]string{"address": addr, "action": "explode"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleAction(rr, request(http.MethodPost, "/", nil, map[string]string{"address": "kitchen", "action": "connect"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSpeakerHandler_StatusAndList(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:FF"
	svc := new(MockSpeakerService)
	svc.On("Status", addr).Return(domain.SpeakerStatus{Address: addr, State: domain.LinkDisconnected, Playback: domain.PlaybackOff})
	svc.On("List").Return([]domain.SpeakerStatus{})
	h := NewSpeakerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleStatus(rr, request(http.MethodGet, "/", nil, map[string]string{"address": addr}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"playback":"off"`)

	rr = httptest.NewRecorder()
	h.HandleList(rr, request(http.MethodGet, "/", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"speakers":[]`)
}

func TestExportHandler(t *testing.T) {
	devices := new(MockDiscoveryService)
	devices.On("Devices", domain.DeviceFilter{}).Return([]domain.SeenDevice{speakerDevice()})
	flows := new(MockFlowService)
	flows.On("Entries").Return([]domain.SpeakerEntry{}, nil)
	exporter := new(MockExporter)
	exporter.On("ExportInventory", mock.MatchedBy(func(r *domain.InventoryReport) bool {
		return r.Stats.TotalDevices == 1 && r.Stats.AudioDevices == 1
	})).Return([]byte("%PDF-1.3 fake"), nil)

	h := NewExportHandler(devices, flows, exporter)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.HandleExport(rr, request(http.MethodGet, "/api/export", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "bluespeak_devices_20240501_090000.json")

	rr = httptest.NewRecorder()
	h.HandleExport(rr, request(http.MethodGet, "/api/export?format=csv", nil, nil))
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	rr = httptest.NewRecorder()
	h.HandleExport(rr, request(http.MethodGet, "/api/export?format=pdf", nil, nil))
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))

	rr = httptest.NewRecorder()
	h.HandleExport(rr, request(http.MethodGet, "/api/export?format=xml", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	NewExportHandler(devices, flows, nil).HandleExport(rr, request(http.MethodGet, "/api/export?format=pdf", nil, nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestSystemHandler(t *testing.T) {
	devices := new(MockDiscoveryService)
	devices.On("DeviceCount").Return(7)
	devices.On("LastSummary").Return(domain.ScanSummary{}, false)
	devices.On("Reset").Return()
	flows := new(MockFlowService)
	flows.On("Entries").Return([]domain.SpeakerEntry{{ID: "e1"}, {ID: "e2"}}, nil)
	speakers := new(MockSpeakerService)
	speakers.On("List").Return([]domain.SpeakerStatus{{Address: "AA"}})
	speakers.On("Reset").Return()
	h := NewSystemHandler(devices, flows, speakers, "1.2.3")

	rr := httptest.NewRecorder()
	h.HandleHealth(rr, request(http.MethodGet, "/healthz", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var health map[string]interface{}
	decode(t, rr, &health)
	assert.Equal(t, "initialized", health["status"])
	assert.Equal(t, float64(7), health["devices"])
	assert.Equal(t, float64(2), health["entries"])
	assert.Equal(t, float64(1), health["speakers"])
	assert.Equal(t, "1.2.3", health["version"])

	rr = httptest.NewRecorder()
	h.HandleReset(rr, request(http.MethodPost, "/api/reset", nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	devices.AssertCalled(t, "Reset")
	speakers.AssertCalled(t, "Reset")
}

func TestSystemHandler_HealthDegraded(t *testing.T) {
	devices := new(MockDiscoveryService)
	devices.On("DeviceCount").Return(0)
	flows := new(MockFlowService)
	flows.On("Entries").Return(nil, errors.New("database is locked"))

	rr := httptest.NewRecorder()
	NewSystemHandler(devices, flows, nil, "").HandleHealth(rr, request(http.MethodGet, "/healthz", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}
