package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectDeviceFromListNamedInput(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "alsa_input.usb-sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, " Sony ", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-sony", selection.Device.ID)
}

func TestSelectDeviceFromListMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListUnavailablePrimaryFallsBackToDefault(t *testing.T) {
	devices := []Device{
		{ID: "usb-headset", Description: "Headset", Available: false},
		{ID: "builtin", Description: "Built-in Mic", Available: true, Default: true},
	}

	selection, err := selectDeviceFromList(devices, "headset", "default")
	require.NoError(t, err)
	require.Equal(t, "builtin", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectDeviceFromListFailures(t *testing.T) {
	tests := []struct {
		name     string
		devices  []Device
		input    string
		fallback string
		wantErr  string
	}{
		{name: "no devices", wantErr: "no audio input devices"},
		{
			name:    "default muted without fallback",
			devices: []Device{{ID: "elgato", Available: true, Muted: true, Default: true}},
			input:   "default", fallback: "default",
			wantErr: "muted",
		},
		{
			name:    "unknown input",
			devices: []Device{{ID: "elgato", Available: true, Default: true}},
			input:   "missing", fallback: "default",
			wantErr: "did not match",
		},
		{
			name:    "missing fallback",
			devices: []Device{{ID: "elgato", Available: false, Default: true}},
			input:   "elgato", fallback: "sony",
			wantErr: "no usable fallback",
		},
		{
			name:    "no default source",
			devices: []Device{{ID: "elgato", Available: true}},
			input:   "default",
			wantErr: "default audio source is unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := selectDeviceFromList(tc.devices, tc.input, tc.fallback)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)

	_, err = WatchDefaultSource(context.Background(), 0)
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "line", available: 2}, {name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
