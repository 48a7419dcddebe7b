package models

// elementKeys maps each ticket element to its position, visibility and size
// keys in the flat ticket_design map. Empty keys mean "always shown" or "no
// dedicated size".
var elementKeys = map[string]struct{ x, y, visible, size, text string }{
	"logo":      {"logo_position_x", "logo_position_y", "show_logo", "", ""},
	"company":   {"company_position_x", "company_position_y", "company_info", "company_font_size", ""},
	"number":    {"number_position_x", "number_position_y", "", "number_size", "number_prefix"},
	"thank":     {"thank_position_x", "thank_position_y", "", "thank_font_size", "thank_message"},
	"warning":   {"warning_position_x", "warning_position_y", "", "warning_font_size", "warning_message"},
	"date":      {"date_position_x", "date_position_y", "show_date", "", ""},
	"time":      {"time_position_x", "time_position_y", "show_time", "", ""},
	"custom":    {"custom_position_x", "custom_position_y", "", "message_font_size", "custom_message"},
	"watermark": {"watermark_position_x", "watermark_position_y", "watermark", "watermark_font_size", "watermark_text"},
}

// ElementsFromDesign derives the per-element placement map from a flat
// ticket_design.
func ElementsFromDesign(td map[string]any) map[string]DesignElement {
	d := Settings(td)
	out := make(map[string]DesignElement, len(elementKeys))
	for id, k := range elementKeys {
		el := DesignElement{
			X:       d.Int(k.x, 0),
			Y:       d.Int(k.y, 0),
			Visible: true,
			Color:   "black",
		}
		if k.visible != "" {
			el.Visible = d.Bool(k.visible, true)
		}
		if k.size != "" {
			el.FontSize = d.Int(k.size, 12)
		}
		if k.text != "" {
			el.Text = d.String(k.text, "")
		}
		out[id] = el
	}
	return out
}
