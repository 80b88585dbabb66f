package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fixxit/machdocs/internal/catalog"
)

// directoryTypes maps well-known subdirectory names inside a machine folder
// to document types.
var directoryTypes = map[string]catalog.DocumentType{
	"operatingManuals": catalog.TypeManual,
	"spareParts":       catalog.TypeParts,
	"Diagrams":         catalog.TypeDiagram,
	"info":             catalog.TypeInfo,
}

// ClassifyPath determines a document's type from its location under the
// machine directory and, failing that, from its filename. Filename markers
// take precedence over directory placement for pinned context and general
// description files.
func ClassifyPath(machineDir, filePath string) catalog.DocumentType {
	filename := filepath.Base(filePath)

	if strings.Contains(filename, "Pinned Context") {
		return catalog.TypeContext
	}
	if strings.Contains(filename, "generalDescription.txt") {
		return catalog.TypeGeneral
	}

	if rel, err := filepath.Rel(machineDir, filePath); err == nil {
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if t, ok := directoryTypes[part]; ok {
				return t
			}
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		lower := strings.ToLower(filename)
		switch {
		case containsAny(lower, "operating", "manual", "instruction"):
			return catalog.TypeManual
		case containsAny(lower, "spare", "parts"):
			return catalog.TypeParts
		case containsAny(lower, "wiring", "diagram", "pneumatic", "hydraulic"):
			return catalog.TypeDiagram
		default:
			return catalog.TypeManual
		}
	case ".txt", ".md":
		return catalog.TypeInfo
	}
	return catalog.TypeInfo
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var lineNumberRe = regexp.MustCompile(`Line_(\d+)`)

// machineTypeKeywords maps name fragments to equipment categories, checked in
// order so more specific fragments win.
var machineTypeKeywords = []struct {
	keyword     string
	machineType string
}{
	{"feeder", "feeder"},
	{"folder", "folder"},
	{"ironer", "ironer"},
	{"dryer", "dryer"},
	{"press", "press"},
	{"picker", "picker"},
	{"csp", "separator"},
	{"tunnel", "washer"},
	{"conveyor", "conveyor"},
	{"xfm", "folder"},
}

// MachineInfo derives machine metadata from the directory: the line number
// from any Line_<n> path component, the equipment category from name
// fragments, and the description from the first meaningful line of the
// machine's general description file when present.
func MachineInfo(machineDir string) catalog.Machine {
	name := filepath.Base(machineDir)
	m := catalog.Machine{
		Name:          name,
		DirectoryPath: machineDir,
	}

	if match := lineNumberRe.FindStringSubmatch(machineDir); match != nil {
		m.LineNumber = "Line_" + match[1]
	}

	lower := strings.ToLower(name)
	for _, tk := range machineTypeKeywords {
		if strings.Contains(lower, tk.keyword) {
			m.MachineType = tk.machineType
			break
		}
	}

	m.Description = readDescription(filepath.Join(machineDir, name+"-generalDescription.txt"))
	return m
}

func readDescription(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "Pinned Context") {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}
		return line
	}
	return ""
}
