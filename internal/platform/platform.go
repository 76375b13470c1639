package platform

import (
	"fmt"
	"path/filepath"
	"runtime"

	"socket/internal/errs"
)

// Platform identifies the packaging target. It is always resolved from the
// host, never from a flag: exactly one branch executes per run.
type Platform int

const (
	MacOS Platform = iota
	Linux
	Windows
)

// Current resolves the target platform from the host operating system.
func Current() (Platform, error) {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) (Platform, error) {
	switch goos {
	case "darwin":
		return MacOS, nil
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	default:
		return 0, errs.Wrap(errs.ErrConfiguration, "platform", "resolve",
			fmt.Sprintf("unsupported host platform %q", goos), nil)
	}
}

func (p Platform) String() string {
	switch p {
	case MacOS:
		return "macos"
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	default:
		return "unknown"
	}
}

// BuildCommandKey returns the settings key holding the user build command for
// this platform.
func (p Platform) BuildCommandKey() string {
	switch p {
	case MacOS:
		return "mac_cmd"
	case Linux:
		return "linux_cmd"
	default:
		return "win_cmd"
	}
}

// DefaultCompiler returns the toolchain used when $CXX is unset.
func (p Platform) DefaultCompiler() string {
	if p == Windows {
		return "clang++"
	}
	return "/usr/bin/g++"
}

// ExecutableSuffix is appended to the executable name on disk.
func (p Platform) ExecutableSuffix() string {
	if p == Windows {
		return ".exe"
	}
	return ""
}

// SourceFiles lists the runtime sources compiled into the native binary,
// rooted at the installed runtime prefix.
func (p Platform) SourceFiles(prefix string) []string {
	switch p {
	case Windows:
		return []string{
			filepath.Join(prefix, "src", "main.cc"),
			filepath.Join(prefix, "src", "process_win.cc"),
		}
	default:
		return []string{
			filepath.Join(prefix, "src", "main.cc"),
			filepath.Join(prefix, "src", "process_unix.cc"),
		}
	}
}

// CompileFlags returns the fixed platform flag set for the compile step. The
// Linux flags rely on shell substitution of pkg-config output, so the compile
// command must run through a shell.
func (p Platform) CompileFlags(prefix string) string {
	switch p {
	case MacOS:
		return "-std=c++2a -framework WebKit -framework Cocoa -ObjC++"
	case Linux:
		return "-std=c++2a `pkg-config --cflags --libs gtk+-3.0 webkit2gtk-4.0`"
	default:
		win64 := filepath.Join(prefix, "src", "win64")
		return fmt.Sprintf("-std=c++20 -I%s -I%s -L%s", prefix, win64, win64)
	}
}
