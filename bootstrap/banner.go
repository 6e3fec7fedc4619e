package bootstrap

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dimiro1/banner"
)

// PrintBanner renders the service name as ASCII art followed by the version.
func PrintBanner(w io.Writer, name, version string) {
	title := strings.ToUpper(strings.ReplaceAll(name, `"`, ""))
	tpl := fmt.Sprintf("{{ .Title %q \"\" 0 }}\nVersion: %s\n", title, version)
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}
