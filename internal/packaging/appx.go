package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"socket/internal/errs"
	"socket/internal/layout"
	"socket/internal/logging"
)

const appxManifestName = "AppxManifest.xml"

// AppxResult reports what went into the container. Skipped payloads mean the
// artifact is incomplete; the caller surfaces that instead of reporting plain
// success.
type AppxResult struct {
	Path     string
	Payloads int
	Skipped  int
}

// AssembleAppx builds the .appx container (an OPC zip) by walking the package
// tree: every file becomes a payload entry with a best-effort MIME type guess,
// except the manifest, which is attached separately at the end together with
// the [Content_Types].xml part. A payload file that cannot be read is logged
// and skipped; container-level failures are fatal.
func AssembleAppx(lay layout.Layout, logger *slog.Logger) (AppxResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := AppxResult{Path: lay.PackageRoot + ".appx"}

	manifestPath := filepath.Join(lay.PackageRoot, appxManifestName)
	if _, err := os.Stat(manifestPath); err != nil {
		return result, errs.Wrap(errs.ErrConfiguration, "package", "appx",
			fmt.Sprintf("missing %s", appxManifestName), err)
	}

	out, err := os.Create(result.Path)
	if err != nil {
		return result, fmt.Errorf("create container %s: %w", result.Path, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	contentTypes := map[string]string{}

	walkErr := filepath.WalkDir(lay.PackageRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == appxManifestName {
			return nil
		}
		rel, err := filepath.Rel(lay.PackageRoot, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if addErr := addPayload(zw, path, name, contentTypes); addErr != nil {
			// File omission keeps the archive going but the result is
			// incomplete; counted and surfaced by the caller.
			logger.Warn("could not add payload file",
				logging.String(logging.FieldPath, path),
				logging.Error(errs.Wrap(errs.ErrPartialArtifact, "package", "appx payload", "", addErr)))
			result.Skipped++
			return nil
		}
		result.Payloads++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return result, fmt.Errorf("walk package tree: %w", walkErr)
	}

	if err := addPayload(zw, manifestPath, appxManifestName, nil); err != nil {
		_ = zw.Close()
		return result, fmt.Errorf("attach manifest: %w", err)
	}
	if err := writeContentTypes(zw, contentTypes); err != nil {
		_ = zw.Close()
		return result, fmt.Errorf("write content types: %w", err)
	}
	if err := zw.Close(); err != nil {
		return result, fmt.Errorf("finalize container: %w", err)
	}
	if err := out.Close(); err != nil {
		return result, fmt.Errorf("close container: %w", err)
	}

	logger.Info("package saved",
		logging.String(logging.FieldPath, result.Path),
		logging.Int("payloads", result.Payloads),
		logging.Int("skipped", result.Skipped))
	return result, nil
}

func addPayload(zw *zip.Writer, path, name string, contentTypes map[string]string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if contentTypes != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if ext != "" {
			if _, seen := contentTypes[ext]; !seen {
				contentTypes[ext] = detectContentType(path)
			}
		}
	}

	entry, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, in)
	return err
}

func detectContentType(path string) string {
	mime, err := mimetype.DetectFile(path)
	if err != nil || mime == nil {
		return "application/octet-stream"
	}
	// Strip any charset parameter; OPC content types are bare media types.
	value := mime.String()
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

func writeContentTypes(zw *zip.Writer, types map[string]string) error {
	exts := make([]string, 0, len(types))
	for ext := range types {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + "\n")
	b.WriteString(`  <Default Extension="xml" ContentType="application/vnd.ms-appx.manifest+xml"/>` + "\n")
	for _, ext := range exts {
		if ext == "xml" {
			continue
		}
		fmt.Fprintf(&b, "  <Default Extension=%q ContentType=%q/>\n", ext, types[ext])
	}
	b.WriteString("</Types>\n")

	entry, err := zw.Create("[Content_Types].xml")
	if err != nil {
		return err
	}
	_, err = io.WriteString(entry, b.String())
	return err
}
