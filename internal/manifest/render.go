package manifest

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"socket/internal/errs"
	"socket/internal/fileutil"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/platform"
	"socket/internal/settings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("manifests").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"),
)

// document binds one manifest template to its destination inside the layout.
type document struct {
	template string
	dest     func(lay layout.Layout, set *settings.Settings) string
}

func documentsFor(plat platform.Platform) []document {
	switch plat {
	case platform.MacOS:
		return []document{{
			template: "info.plist.tmpl",
			dest: func(lay layout.Layout, _ *settings.Settings) string {
				return filepath.Join(lay.PackageRoot, "Contents", "Info.plist")
			},
		}}
	case platform.Linux:
		return []document{
			{
				template: "app.desktop.tmpl",
				dest: func(lay layout.Layout, set *settings.Settings) string {
					return filepath.Join(lay.PackageRoot, "usr", "share", "applications", set.Get("name")+".desktop")
				},
			},
			{
				template: "control.tmpl",
				dest: func(lay layout.Layout, _ *settings.Settings) string {
					return filepath.Join(lay.PackageRoot, "DEBIAN", "control")
				},
			},
		}
	default:
		return []document{{
			template: "appxmanifest.xml.tmpl",
			dest: func(lay layout.Layout, _ *settings.Settings) string {
				return filepath.Join(lay.PackageRoot, "AppxManifest.xml")
			},
		}}
	}
}

// RequiredKeys lists every settings key the platform's manifest templates
// reference, sorted and de-duplicated.
func RequiredKeys(plat platform.Platform) []string {
	seen := map[string]struct{}{}
	for _, doc := range documentsFor(plat) {
		tmpl := templates.Lookup(doc.template)
		if tmpl == nil || tmpl.Tree == nil {
			continue
		}
		collectFields(tmpl.Tree.Root, seen)
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Preflight verifies every key the platform's templates reference is present
// in the settings. An unresolved placeholder would be a silent-correctness
// bug in the rendered manifest, so absence is a hard configuration error
// before anything is written.
func Preflight(set *settings.Settings, plat platform.Platform) error {
	var missing []string
	for _, key := range RequiredKeys(plat) {
		if !set.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errs.Wrap(errs.ErrConfiguration, "manifest", "preflight",
			fmt.Sprintf("manifest references unset settings key(s): %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// Render runs the preflight, renders each platform manifest to memory, and
// writes the files into the resolved layout. On Linux it also places the
// hicolor icon when linux_icon is set, skipping the copy if the destination
// already exists.
func Render(set *settings.Settings, lay layout.Layout, projectRoot string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := Preflight(set, lay.Platform); err != nil {
		return err
	}

	data := map[string]string{}
	for _, key := range set.Keys() {
		data[key] = set.Get(key)
	}

	for _, doc := range documentsFor(lay.Platform) {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, doc.template, data); err != nil {
			return errs.Wrap(errs.ErrConfiguration, "manifest", "render", doc.template, err)
		}
		dest := doc.dest(lay, set)
		if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		logger.Debug("wrote manifest", logging.String("path", dest))
	}

	if lay.Platform == platform.Linux {
		return placeLinuxIcon(set, lay, projectRoot, logger)
	}
	return nil
}

func placeLinuxIcon(set *settings.Settings, lay layout.Layout, projectRoot string, logger *slog.Logger) error {
	icon := strings.TrimSpace(set.Get("linux_icon"))
	if icon == "" {
		return nil
	}
	src := filepath.Join(projectRoot, icon)
	dst := filepath.Join(layout.IconDir(lay.PackageRoot), set.Get("executable")+".png")
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return fmt.Errorf("copy icon: %w", err)
	}
	logger.Debug("placed icon", logging.String("path", dst))
	return nil
}

func collectFields(node parse.Node, out map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectFields(child, out)
		}
	case *parse.ActionNode:
		collectPipe(n.Pipe, out)
	case *parse.IfNode:
		collectPipe(n.Pipe, out)
		collectFields(n.List, out)
		if n.ElseList != nil {
			collectFields(n.ElseList, out)
		}
	case *parse.RangeNode:
		collectPipe(n.Pipe, out)
		collectFields(n.List, out)
		if n.ElseList != nil {
			collectFields(n.ElseList, out)
		}
	case *parse.WithNode:
		collectPipe(n.Pipe, out)
		collectFields(n.List, out)
		if n.ElseList != nil {
			collectFields(n.ElseList, out)
		}
	}
}

func collectPipe(pipe *parse.PipeNode, out map[string]struct{}) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			if field, ok := arg.(*parse.FieldNode); ok && len(field.Ident) > 0 {
				out[field.Ident[0]] = struct{}{}
			}
		}
	}
}
