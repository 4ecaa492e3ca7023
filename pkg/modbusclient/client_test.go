package modbusclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbrandon/mbserver"
)

func TestDecode(t *testing.T) {

	var tests = []struct {
		name     string
		expected int
		given    []byte
	}{
		{
			name:     "8bit negative",
			expected: -28,
			given:    []byte{0xe4},
		},
		{
			name:     "16bit negative",
			expected: -28,
			given:    []byte{0xff, 0xe4},
		},
		{
			name:     "16bit postive",
			expected: 31,
			given:    []byte{0x00, 0x1f},
		},
		{
			name:     "large 32bit positive",
			expected: 514773,
			given:    []byte{0x00, 0x07, 0xda, 0xd5},
		},
		{
			name:     "32bit postive",
			expected: 31,
			given:    []byte{0x00, 0x00, 0x00, 0x1f},
		},
		{
			name:     "32bit negative",
			expected: -29,
			given:    []byte{0xff, 0xff, 0xff, 0xe3},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			actual := Decode(tt.given)
			if actual != tt.expected {
				t.Errorf("given(%#v): expected %d, actual %d", tt.given, tt.expected, actual)
			}
		})
	}

}

func TestDialRead(t *testing.T) {
	serv := mbserver.NewServer()
	serv.HoldingRegisters[10] = 0xffe4 // -28
	serv.HoldingRegisters[20] = 0x0007
	serv.HoldingRegisters[21] = 0xdad5
	serv.InputRegisters[3] = 31
	err := serv.ListenTCP("127.0.0.1:15021")
	require.NoError(t, err)
	defer serv.Close()

	c := Dial("127.0.0.1:15021", 1, time.Second)
	defer c.Close()

	v, err := c.ReadHoldingRegister16(10)
	assert.NoError(t, err)
	assert.Equal(t, -28, v)

	v, err = c.ReadHoldingRegister32(20)
	assert.NoError(t, err)
	assert.Equal(t, 514773, v)

	v, err = c.ReadInputRegister(3)
	assert.NoError(t, err)
	assert.Equal(t, 31, v)
}
