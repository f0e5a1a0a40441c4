package consoleqt

import (
	"os"
	"path/filepath"
	"runtime"
)

// Qt reads these before the QApplication exists, so they are set at init.
func init() {
	setDefaultEnv(map[string]string{
		"QT_AUTO_SCREEN_SCALE_FACTOR": "0",
		"QT_SCALE_FACTOR":             "1",
		"QT_SCREEN_SCALE_FACTORS":     "1",
		"QT_ENABLE_HIGHDPI_SCALING":   "0",
		"QT_DEVICE_PIXEL_RATIO":       "1",
	})

	switch runtime.GOOS {
	case "darwin":
		if dir := firstDir(
			"/opt/homebrew/opt/qt@5",
			"/usr/local/opt/qt@5",
			"/opt/homebrew/opt/qt",
			"/usr/local/opt/qt",
		); dir != "" {
			setDefaultEnv(map[string]string{
				"QT_DIR":                      dir,
				"QT_PLUGIN_PATH":              filepath.Join(dir, "plugins"),
				"QT_QPA_PLATFORM_PLUGIN_PATH": filepath.Join(dir, "plugins", "platforms"),
				"QT_QPA_PLATFORM":             "cocoa",
			})
		}
	case "linux":
		if dir := firstDir(
			"/usr/lib/x86_64-linux-gnu/qt5/plugins",
			"/usr/lib/qt5/plugins",
			"/usr/lib64/qt5/plugins",
		); dir != "" {
			setDefaultEnv(map[string]string{"QT_PLUGIN_PATH": dir})
		}
	}
}

// setDefaultEnv sets each variable that is not already set.
func setDefaultEnv(vars map[string]string) {
	for k, v := range vars {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}

func firstDir(candidates ...string) string {
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
