package printer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/micro-nova/queuepi/internal/models"
)

const (
	lineWidth       = 32
	defaultEncoding = "cp437"
)

// ESC/POS command bytes.
var (
	cmdInit        = []byte{0x1B, '@'}
	cmdAlignCenter = []byte{0x1B, 'a', 0x01}
	cmdBoldOn      = []byte{0x1B, 'E', 0x01}
	cmdBoldOff     = []byte{0x1B, 'E', 0x00}
	cmdDoubleSize  = []byte{0x1B, '!', 0x30}
	cmdNormalSize  = []byte{0x1B, '!', 0x00}
	cmdCut         = []byte{0x1D, 'V', 0x00}
)

var (
	ruleSingle = strings.Repeat("-", lineWidth)
	ruleDouble = strings.Repeat("=", lineWidth)
)

var codePages = map[string]encoding.Encoding{
	"cp437":      charmap.CodePage437,
	"cp850":      charmap.CodePage850,
	"cp852":      charmap.CodePage852,
	"cp858":      charmap.CodePage858,
	"cp866":      charmap.CodePage866,
	"cp1252":     charmap.Windows1252,
	"latin1":     charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
}

// ticketWriter accumulates ESC/POS output in one code page.
type ticketWriter struct {
	buf bytes.Buffer
	enc encoding.Encoding
}

func newTicketWriter(name string) *ticketWriter {
	enc, ok := codePages[strings.ToLower(name)]
	if !ok && name != "utf-8" && name != "utf8" {
		enc = codePages[defaultEncoding]
	}
	return &ticketWriter{enc: enc}
}

func (w *ticketWriter) cmd(b []byte) { w.buf.Write(b) }

// text writes s in the configured code page. Text the code page cannot
// represent is sent as UTF-8.
func (w *ticketWriter) text(s string) {
	if w.enc == nil {
		w.buf.WriteString(s)
		return
	}
	out, err := w.enc.NewEncoder().String(s)
	if err != nil {
		w.buf.WriteString(s)
		return
	}
	w.buf.WriteString(out)
}

func (w *ticketWriter) line(s string) { w.text(s + "\n") }

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Build renders t as ESC/POS bytes: company block, prefix, enlarged number,
// date and time, messages, watermark, feed and cut.
func Build(t Ticket) []byte {
	design := t.design()
	ps, _ := t.Settings.Map("printer_settings")
	opts := models.Settings(ps)
	now := t.Time
	if now.IsZero() {
		now = time.Now()
	}

	w := newTicketWriter(opts.String("encoding", defaultEncoding))
	w.cmd(cmdInit)

	if logo := design.String("ticket_logo_path", ""); design.Bool("show_logo", true) && fileExists(logo) {
		w.line("[TICKET LOGO]")
		w.line(ruleSingle)
	}

	if design.Bool("company_info", true) {
		if name := t.Settings.String("company_name", ""); name != "" {
			if opts.Bool("align_center", true) {
				w.cmd(cmdAlignCenter)
			}
			if opts.Bool("bold_header", true) {
				w.cmd(cmdBoldOn)
			}
			if opts.Bool("double_height", true) {
				w.cmd(cmdDoubleSize)
			}
			w.line(name)
			w.cmd(cmdNormalSize)
			w.cmd(cmdBoldOff)
		}
		if addr := t.Settings.String("company_address", ""); addr != "" {
			w.line(addr)
		}
		if phone := t.Settings.String("company_phone", ""); phone != "" {
			w.line(phone)
		}
		w.text("\n" + ruleDouble + "\n\n")
	}

	w.cmd(cmdAlignCenter)
	w.line(design.String("number_prefix", "Ticket #"))
	w.cmd(cmdDoubleSize)
	w.text(fmt.Sprintf("%04d\n\n", t.Number))
	w.cmd(cmdNormalSize)

	if design.Bool("show_date", true) {
		w.line("Date: " + strftime.Format(design.String("date_format", "%Y-%m-%d"), now))
	}
	if design.Bool("show_time", true) {
		w.line("Time: " + strftime.Format(design.String("time_format", "%H:%M:%S"), now))
	}
	w.text("\n")

	for _, key := range []string{"thank_message", "warning_message", "custom_message"} {
		if msg := design.String(key, ""); msg != "" {
			w.line(msg)
		}
	}

	if mark := design.String("watermark_text", ""); design.Bool("watermark", true) && mark != "" {
		w.text("\n" + ruleSingle + "\n")
		w.line(mark)
	}

	w.text("\n\n\n")
	if opts.Bool("cut_after_print", true) {
		w.cmd(cmdCut)
	}
	return w.buf.Bytes()
}
