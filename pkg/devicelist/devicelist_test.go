package devicelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "header only",
			text: "List of devices attached\n\n",
			want: nil,
		},
		{
			name: "two devices",
			text: "List of devices attached\nemulator-5554\tdevice\nR58M123ABC\tunauthorized\n\n",
			want: []string{"emulator-5554", "R58M123ABC"},
		},
		{
			name: "crlf line endings",
			text: "List of devices attached\r\nemulator-5554\tdevice\r\n\r\n",
			want: []string{"emulator-5554"},
		},
		{
			name: "daemon status lines before header",
			text: "* daemon not running; starting now at tcp:5037\n* daemon started successfully\nList of devices attached\nabc123\tdevice\n",
			want: []string{"abc123"},
		},
		{
			name: "unrecognized extra header",
			text: "adb server version (41) doesn't match this client (39); killing...\nList of devices attached\nabc123\tdevice\n",
			want: []string{"abc123"},
		},
		{
			name: "bootloader listing without header",
			text: "0123456789ABCDEF\tfastboot\n",
			want: []string{"0123456789ABCDEF"},
		},
		{
			name: "long format with spaces",
			text: "List of devices attached\nemulator-5554          device product:sdk_gphone64 model:Pixel_7 device:emu64a transport_id:1\n",
			want: []string{"emulator-5554"},
		},
		{
			name: "malformed lines skipped",
			text: "List of devices attached\nloneword\n\t device\nabc123\tdevice\n",
			want: []string{"abc123"},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Serials(Parse(tt.text))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStates(t *testing.T) {
	text := "List of devices attached\n" +
		"a\tdevice\n" +
		"b\trecovery\n" +
		"c\tsideload\n" +
		"d\toffline\n" +
		"e\tno permissions (user in plugdev group); see [http://developer.android.com/tools/device.html]\n" +
		"f\tweird-state\n"

	entries := Parse(text)
	require.Len(t, entries, 6)

	want := []State{StateDevice, StateRecovery, StateSideload, StateOffline, StateNoPermissions, StateUnknown}
	for i, e := range entries {
		assert.Equal(t, want[i], e.State, "entry %s", e.Serial)
	}
	assert.True(t, entries[0].State.Online())
	assert.False(t, entries[1].State.Online())
}

func TestParseAttributes(t *testing.T) {
	entries := Parse("List of devices attached\nR58M123 device usb:1-1 product:beyond1 model:SM_G973F transport_id:4\n")
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, StateDevice, e.State)
	assert.Equal(t, "SM_G973F", e.Attributes["model"])
	assert.Equal(t, "4", e.Attributes["transport_id"])
}

func TestParseState(t *testing.T) {
	assert.Equal(t, StateFastboot, ParseState(" fastboot "))
	assert.True(t, ParseState("fastboot").InBootloader())
	assert.True(t, ParseState("bootloader").InBootloader())
	assert.Equal(t, StateUnknown, ParseState(""))
}

func TestSerialsDeduplicates(t *testing.T) {
	got := Serials([]Entry{{Serial: "a"}, {Serial: "b"}, {Serial: "a"}})
	assert.Equal(t, []string{"a", "b"}, got)
}
