package meter

import "time"

// Data is one reading of the grid meter. Energy in Wh, power in W.
type Data struct {
	Id             string    `json:"id"`
	Model          string    `json:"model"`
	Time           time.Time `json:"time"`
	Current_W      float64   `json:"w,omitempty"`
	Export_W       float64   `json:"export_w,omitempty"`
	Total_WH       float64   `json:"wh,omitempty"`
	TotalExport_WH float64   `json:"export_wh,omitempty"`
	L1_A           float64   `json:"l1_a,omitempty"`
	L2_A           float64   `json:"l2_a,omitempty"`
	L3_A           float64   `json:"l3_a,omitempty"`
	L1_V           float64   `json:"l1_v,omitempty"`
	L2_V           float64   `json:"l2_v,omitempty"`
	L3_V           float64   `json:"l3_v,omitempty"`
}

// ExportKWh is the cumulative exported energy in kWh.
func (d *Data) ExportKWh() float64 {
	return d.TotalExport_WH / 1000
}
