package models

// SchemaVersion is the settings document version written by this release.
const SchemaVersion = "6.5.0"

// Document timestamp layouts.
const (
	TimeLayout  = "2006-01-02 15:04:05"
	StampLayout = "20060102_150405"
)

// Defaults for values the controller falls back to when settings are damaged.
const (
	DefaultStartNumber      = 1
	DefaultIncrementBy      = 1
	DefaultMaxNumber        = 9999
	DefaultAutoSaveInterval = 10
	DefaultBackupInterval   = 60
	DefaultPassword         = "1234"
	BackupRetention         = 10
)

// DefaultSettings returns the canonical settings schema. Every key here must
// exist after a load, whatever the age of the file on disk.
func DefaultSettings() Settings {
	return Settings{
		"version":         SchemaVersion,
		"title":           "Premium Queue System",
		"logo":            "assets/logo.png",
		"company_name":    "Your Company Name",
		"company_address": "123 Business Street, City, Country",
		"company_phone":   "+1234567890",
		"system_password": DefaultPassword,
		"current_number":  DefaultStartNumber,
		"language":        "english",

		"main_window": map[string]any{
			"bg_color":        "#1a237e",
			"gradient_start":  "#1a237e",
			"gradient_end":    "#283593",
			"use_gradient":    true,
			"number_color":    "#ffffff",
			"number_bg_color": "#ff5722",
			"number_size":     120,
			"number_font":     "Arial",
			"number_shape":    "circle",

			"number_border_color": "#ffffff",
			"number_border_width": 4,

			"time_color":  "#e8eaf6",
			"time_size":   18,
			"time_format": "%Y-%m-%d %H:%M:%S",

			"title_size":    28,
			"title_color":   "#ffffff",
			"company_size":  16,
			"company_color": "#e8eaf6",
			"stats_size":    14,
			"stats_color":   "#bbbbbb",

			"print_button_color":    "#4CAF50",
			"print_button_text":     "Print Ticket",
			"nav_button_color":      "#2196F3",
			"prev_button_text":      "Previous",
			"next_button_text":      "Next",
			"settings_button_color": "#FF9800",
			"settings_button_text":  "Settings",
			"reset_button_color":    "#9C27B0",
			"reset_button_text":     "Reset",
		},

		"ticket_design": DefaultTicketDesign(),

		"printer_settings": map[string]any{
			"encoding":        "cp437",
			"paper_width":     80,
			"cut_after_print": true,
			"print_quality":   "high",
			"darkness":        12,
			"print_speed":     3,
			"align_center":    true,
			"bold_header":     true,
			"double_height":   true,
		},

		"ui_layout": map[string]any{
			"window_width":  1000,
			"window_height": 800,
			"design_mode":   false,
			"widgets": map[string]any{
				"logo":            widget(100, 100, 150, 100),
				"title":           widget(500, 120, 300, 40),
				"company":         widget(500, 170, 300, 30),
				"time":            widget(500, 220, 300, 25),
				"number":          widget(500, 350, 300, 300),
				"number_label":    widget(500, 450, 200, 30),
				"prev_button":     widget(100, 500, 200, 70),
				"print_button":    widget(300, 500, 250, 70),
				"next_button":     widget(500, 500, 200, 70),
				"settings_button": widget(700, 500, 200, 60),
				"reset_button":    widget(700, 570, 180, 55),
				"stats":           widget(500, 650, 400, 50),
				"instructions":    widget(500, 700, 500, 30),
			},
		},

		"business_rules": map[string]any{
			"start_number":               DefaultStartNumber,
			"increment_by":               DefaultIncrementBy,
			"max_number":                 DefaultMaxNumber,
			"reset_at_midnight":          false,
			"auto_increment_after_print": true,
			"sound_effects":              true,
			"auto_save_interval":         DefaultAutoSaveInterval,
			"create_backups":             true,
			"backup_interval":            DefaultBackupInterval,
		},

		"auto_save": map[string]any{
			"enabled":       true,
			"last_save":     "",
			"last_backup":   "",
			"save_count":    0,
			"recovery_data": map[string]any{},
		},
	}
}

// DefaultTicketDesign returns the flat ticket layout used when no design has
// been saved.
func DefaultTicketDesign() map[string]any {
	return map[string]any{
		"show_logo":            true,
		"logo_position_x":      50,
		"logo_position_y":      50,
		"logo_width":           150,
		"logo_height":          100,
		"logo_opacity":         1.0,
		"ticket_logo_path":     "",
		"show_ticket_logo":     true,
		"company_info":         true,
		"company_position_x":   300,
		"company_position_y":   60,
		"company_font_size":    18,
		"number_position_x":    50,
		"number_position_y":    180,
		"number_size":          72,
		"number_prefix":        "Ticket #",
		"thank_message":        "Thank you for choosing our services",
		"thank_position_x":     50,
		"thank_position_y":     280,
		"thank_font_size":      14,
		"warning_message":      "Please wait in the waiting area until your number is called",
		"warning_position_x":   50,
		"warning_position_y":   320,
		"warning_font_size":    12,
		"show_date":            true,
		"show_time":            true,
		"date_position_x":      50,
		"date_position_y":      370,
		"time_position_x":      50,
		"time_position_y":      400,
		"date_format":          "%Y-%m-%d",
		"time_format":          "%H:%M:%S",
		"custom_message":       "We appreciate your patience",
		"custom_position_x":    50,
		"custom_position_y":    450,
		"message_font_size":    12,
		"border_style":         "solid",
		"border_width":         2,
		"watermark":            true,
		"watermark_text":       "OFFICIAL TICKET",
		"watermark_position_x": 200,
		"watermark_position_y": 500,
		"watermark_font_size":  10,
		"paper_width":          80,
		"design_name":          "default",
		"design_timestamp":     "",
	}
}

func widget(x, y, w, h int) map[string]any {
	return map[string]any{"x": x, "y": y, "visible": true, "width": w, "height": h}
}
