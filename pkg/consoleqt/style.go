package consoleqt

import "github.com/phroun/pawconsole/pkg/config"

// styleSheet returns the application style sheet for a theme. Auto leaves
// the platform style alone.
func styleSheet(theme config.ThemeMode) string {
	switch theme {
	case config.ThemeDark:
		return `
			QWidget { background-color: #353535; color: #ffffff; }
			QMainWindow { background-color: #353535; }
			QPlainTextEdit, QLineEdit {
				background-color: #1e1e1e;
				border: 1px solid #454545;
				selection-background-color: #2a82da;
			}
			QMenuBar::item:selected, QMenu::item:selected { background-color: #2a82da; }
		`
	case config.ThemeLight:
		return `
			QWidget { background-color: #f0f0f0; color: #000000; }
			QMainWindow { background-color: #f0f0f0; }
			QPlainTextEdit, QLineEdit {
				background-color: #ffffff;
				border: 1px solid #c0c0c0;
				selection-background-color: #308cc6;
			}
			QMenuBar::item:selected, QMenu::item:selected { background-color: #308cc6; color: #ffffff; }
		`
	}
	return ""
}
