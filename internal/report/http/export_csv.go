package http

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/odyssey-erp/trialbalance/internal/platform/httpx"
	"github.com/odyssey-erp/trialbalance/internal/report"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

var csvBaseHeader = []string{
	"Line", "Initial Debit", "Initial Credit", "Initial Balance",
	"Period Debit", "Period Credit", "Period Balance",
	"Ending Debit", "Ending Credit", "Ending Balance",
}

var csvCurrencyHeader = []string{
	"Initial Amount Currency", "Period Amount Currency", "Ending Amount Currency",
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(q); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	result, err := h.service.TrialBalance(r.Context(), q.filter(), nil)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("trial_balance_%s_%s.csv",
		q.DateFrom.Format("20060102"), q.DateTo.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	streamer := newCSVStreamer(w)
	header := csvBaseHeader
	if q.SplitCurrency {
		header = append(append([]string(nil), csvBaseHeader...), csvCurrencyHeader...)
	}
	if err := streamer.writeRow(header); err != nil {
		h.logger.Error("write csv header", "error", err)
		return
	}
	for _, line := range result.Lines {
		if err := streamer.writeRow(csvRow(line)); err != nil {
			h.logger.Error("write csv row", "error", err)
			return
		}
	}
	if err := streamer.Flush(); err != nil {
		h.logger.Error("flush csv", "error", err)
	}
}

// csvRow flattens a report line; indentation is carried as leading spaces so
// the hierarchy survives in spreadsheet tools.
func csvRow(line report.Line) []string {
	row := make([]string, 0, 1+len(line.Columns))
	row = append(row, strings.Repeat("  ", line.Level)+line.Name)
	for _, col := range line.Columns {
		row = append(row, col.Text)
	}
	return row
}
