package modbusclient

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

type Client interface {
	ReadInputRegister(address uint16) (int, error)
	ReadHoldingRegister32(address uint16) (int, error)
	ReadHoldingRegister16(address uint16) (int, error)
	Close() error
}

type client struct {
	client modbus.Client
	close  func() error
}

func New(c modbus.Client, close func() error) *client {
	return &client{
		client: c,
		close:  close,
	}
}

// Dial creates a modbus TCP client. The connection is opened lazily on first read
// and reopened after broken pipes and timeouts.
func Dial(address string, slaveID byte, timeout time.Duration) *client {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = slaveID
	handler.Timeout = timeout
	return New(modbus.NewClient(handler), handler.Close)
}

func (c *client) Close() error {
	return c.close()
}

func (c *client) closeIfNeeded(e error) {
	if e == nil {
		return
	}

	if errors.Is(e, syscall.EPIPE) {
		logrus.Warn("reconnect due to broken pipe")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}

	if errors.Is(e, os.ErrDeadlineExceeded) {
		logrus.Warn("reconnect due to i/o timeout")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}
}

func (c *client) ReadInputRegister(address uint16) (int, error) {
	b, err := c.client.ReadInputRegisters(address, 1)
	if err != nil {
		c.closeIfNeeded(err)
		err = fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Decode(b), err
}

func (c *client) ReadHoldingRegister16(address uint16) (int, error) {
	return c.readHoldingRegister(address, 1)
}

func (c *client) ReadHoldingRegister32(address uint16) (int, error) {
	return c.readHoldingRegister(address, 2)
}

func (c *client) readHoldingRegister(address, count uint16) (int, error) {
	b, err := c.client.ReadHoldingRegisters(address, count)
	if err != nil {
		c.closeIfNeeded(err)
		err = fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Decode(b), err
}

// Decode High byte first high word first (big endian)
func Decode(data []byte) int {

	switch len(data) {
	case 1:
		var i int8
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 2:
		var i int16
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 4:
		var i int32
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 8:
		var i int64
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	}

	return 0
}
