//go:build windows
// +build windows

package logger

import (
	"os"

	"golang.org/x/sys/windows"
)

const SupportsColorEscapes = true

func GetTerminalInfo(file *os.File) (info TerminalInfo) {
	handle := windows.Handle(file.Fd())

	// Only enable colors if virtual terminal processing can be turned on
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err == nil {
		info.IsTTY = true
		if windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil {
			info.UseColorEscapes = !hasNoColorEnvironmentVariable()
		}

		var csbi windows.ConsoleScreenBufferInfo
		if windows.GetConsoleScreenBufferInfo(handle, &csbi) == nil {
			info.Width = int(csbi.Size.X) - 1
		}
	}

	return
}

func writeStringWithColor(file *os.File, text string) {
	file.WriteString(text)
}
