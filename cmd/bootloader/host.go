package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/render"
	"github.com/wippyai/bootloader/selection"
)

// hostFlags describe the page a module boots into.
type hostFlags struct {
	page      string
	location  string
	userAgent string
	quirks    bool
}

func (h *hostFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.page, "page", "", "host HTML page (default: empty document)")
	cmd.Flags().StringVar(&h.location, "location", "http://localhost:8888/index.html", "page URL")
	cmd.Flags().StringVar(&h.userAgent, "ua", "", "navigator user agent")
	cmd.Flags().BoolVar(&h.quirks, "quirks-mode", false, "render the page in BackCompat mode")
}

// load parses the host page and marks the module's loader script as the
// executing script, appending one when the page does not include it.
func (h *hostFlags) load(module, location string) (*page.Page, error) {
	pc := page.Config{Location: location, UserAgent: h.userAgent}
	if h.quirks {
		pc.CompatMode = page.CompatQuirks
	}

	var (
		p   *page.Page
		err error
	)
	if h.page == "" {
		p, err = page.New(pc)
	} else {
		var f *os.File
		f, err = os.Open(h.page)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		p, err = page.Parse(f, pc)
	}
	if err != nil {
		return nil, err
	}

	loader := module + "/" + module + selection.LoaderSuffix
	el, ok := p.FindScript(module + selection.LoaderSuffix)
	if !ok {
		el = p.AppendScript(loader)
	}
	p.SetCurrentScript(el)
	return p, nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return render.DefaultWidth
	}
	return w
}
