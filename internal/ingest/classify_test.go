package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fixxit/machdocs/internal/catalog"
)

func TestClassifyPathDirectoryMapping(t *testing.T) {
	machineDir := "/plant/Line_2/CSP"
	tests := []struct {
		path string
		want catalog.DocumentType
	}{
		{machineDir + "/operatingManuals/manual_en.pdf", catalog.TypeManual},
		{machineDir + "/spareParts/parts_2020.pdf", catalog.TypeParts},
		{machineDir + "/Diagrams/electrical.pdf", catalog.TypeDiagram},
		{machineDir + "/info/notes.txt", catalog.TypeInfo},
	}
	for _, tt := range tests {
		if got := ClassifyPath(machineDir, tt.path); got != tt.want {
			t.Errorf("ClassifyPath(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestClassifyPathFilenameMarkers(t *testing.T) {
	machineDir := "/plant/CSP"
	if got := ClassifyPath(machineDir, machineDir+"/CSP-Pinned Context.txt"); got != catalog.TypeContext {
		t.Errorf("pinned context file classified as %s", got)
	}
	if got := ClassifyPath(machineDir, machineDir+"/CSP-generalDescription.txt"); got != catalog.TypeGeneral {
		t.Errorf("general description file classified as %s", got)
	}
	// Filename markers win over directory placement.
	if got := ClassifyPath(machineDir, machineDir+"/info/CSP-Pinned Context.txt"); got != catalog.TypeContext {
		t.Errorf("pinned context in info dir classified as %s", got)
	}
}

func TestClassifyPathPDFFallback(t *testing.T) {
	machineDir := "/plant/CSP"
	tests := []struct {
		name string
		want catalog.DocumentType
	}{
		{"Operating_Instructions_2019.pdf", catalog.TypeManual},
		{"spare_parts_list.pdf", catalog.TypeParts},
		{"pneumatic_schematic.pdf", catalog.TypeDiagram},
		{"wiring_overview.pdf", catalog.TypeDiagram},
		{"something_else.pdf", catalog.TypeManual},
	}
	for _, tt := range tests {
		if got := ClassifyPath(machineDir, machineDir+"/"+tt.name); got != tt.want {
			t.Errorf("ClassifyPath(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassifyPathTextFallback(t *testing.T) {
	machineDir := "/plant/CSP"
	if got := ClassifyPath(machineDir, machineDir+"/operator_notes.txt"); got != catalog.TypeInfo {
		t.Errorf("loose text file classified as %s", got)
	}
}

func TestMachineInfo(t *testing.T) {
	root := t.TempDir()
	machineDir := filepath.Join(root, "Line_3", "Feeder_1")
	if err := os.MkdirAll(machineDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	desc := "# Feeder_1\n\nAutomatic linen feeder for Line 3.\nMore detail.\n"
	if err := os.WriteFile(filepath.Join(machineDir, "Feeder_1-generalDescription.txt"), []byte(desc), 0644); err != nil {
		t.Fatalf("write description: %v", err)
	}

	m := MachineInfo(machineDir)
	if m.Name != "Feeder_1" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.LineNumber != "Line_3" {
		t.Errorf("LineNumber = %q, want Line_3", m.LineNumber)
	}
	if m.MachineType != "feeder" {
		t.Errorf("MachineType = %q, want feeder", m.MachineType)
	}
	if m.Description != "Automatic linen feeder for Line 3." {
		t.Errorf("Description = %q", m.Description)
	}
}

func TestMachineInfoTypeKeywords(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"CSP", "separator"},
		{"Tunnel_Washer_2", "washer"},
		{"XFM_Folder", "folder"},
		{"PowerPress", "press"},
		{"Mystery_Unit", ""},
	}
	for _, tt := range tests {
		m := MachineInfo(filepath.Join("/plant", tt.name))
		if m.MachineType != tt.want {
			t.Errorf("MachineInfo(%s).MachineType = %q, want %q", tt.name, m.MachineType, tt.want)
		}
	}
}
