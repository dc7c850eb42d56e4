package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// utf8BOM makes spreadsheet applications detect the encoding.
const utf8BOM = "\uFEFF"

var csvVolumeHeader = []string{
	"Status", "Remetente", "Destinatário", "N° Volume",
	"Qtd Expedida", "Qtd Recebida", "Peso (kg)", "Cubagem (m³)",
	"Prioridade", "Data Recebimento", "Recebido por",
}

// WriteCSV writes the manifest header block followed by one row per volume.
func WriteCSV(w io.Writer, r Report) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	m := r.Summary.Manifest
	records := [][]string{
		{"MANIFESTO", m.Number},
		{"Data", formatDate(m.Date)},
		{"Origem", m.Origin},
		{"Destino", m.Destination},
		{"Status", string(m.Status)},
		{},
		csvVolumeHeader,
	}
	for _, v := range r.Volumes {
		records = append(records, []string{
			string(v.Status),
			v.Sender,
			v.Recipient,
			v.Number,
			strconv.Itoa(v.Expected),
			strconv.Itoa(v.Received),
			formatDecimal(v.Weight, 2),
			formatDecimal(v.Cubage, 3),
			v.Priority,
			formatDateTime(v.FirstReceivedAt),
			r.ReceivedBy[v.ID],
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
