package mbus

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonaz/gombus"
	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
)

const ModelGaroGNM3D = "garo-GNM3D-MBUS"

type Mbus struct {
	device       string
	exportRecord int
	conn         gombus.Conn
	mutex        *sync.Mutex
}

// New reads meters on the serial device. exportRecord is the index of the
// data record holding exported energy in Wh.
func New(device string, exportRecord int) *Mbus {
	return &Mbus{
		device:       device,
		exportRecord: exportRecord,
		mutex:        &sync.Mutex{},
	}
}

func (m *Mbus) init() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		return nil
	}
	c, err := gombus.DialSerial(m.device)
	if err != nil {
		return err
	}
	m.conn = c
	return nil
}

func (m *Mbus) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

func (m *Mbus) ReadValues(model, idStr string) (*meter.Data, error) {
	err := m.init()
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, err
	}

	frame, err := m.read(id)
	if err != nil {
		m.Close()
		return nil, err
	}

	return decode(recordValues(frame), model, idStr, m.exportRecord, time.Now())
}

func recordValues(frame *gombus.DecodedFrame) []float64 {
	values := make([]float64, 0, len(frame.DataRecords))
	for _, r := range frame.DataRecords {
		values = append(values, r.Value)
	}
	return values
}

// decode maps the data record values of one frame to meter data.
func decode(records []float64, model, id string, exportRecord int, now time.Time) (*meter.Data, error) {
	if exportRecord < 0 || exportRecord >= len(records) {
		return nil, fmt.Errorf("export record %d not in frame with %d records", exportRecord, len(records))
	}
	data := &meter.Data{
		Id:             id,
		Model:          model,
		Time:           now,
		TotalExport_WH: records[exportRecord],
	}
	switch model {
	case ModelGaroGNM3D:
		if len(records) < 11 {
			return nil, fmt.Errorf("%s: expected at least 11 records got %d", model, len(records))
		}
		data.Total_WH = records[0]
		data.Current_W = records[2]
		data.L1_A = records[8]
		data.L2_A = records[9]
		data.L3_A = records[10]
	}
	return data, nil
}

func (m *Mbus) read(primaryAddr int) (*gombus.DecodedFrame, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, err := m.conn.Write(gombus.SndNKE(uint8(primaryAddr)))
	if err != nil {
		return nil, err
	}

	err = m.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	if err != nil {
		return nil, err
	}

	_, err = gombus.ReadSingleCharFrame(m.conn)
	if err != nil {
		return nil, err
	}

	return gombus.ReadSingleFrame(m.conn, primaryAddr)
}
